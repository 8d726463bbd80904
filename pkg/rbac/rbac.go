package rbac

// 权限常量
const (
	// 求职者操作
	PermissionSendColdEmail  = "coldemail:send"
	PermissionBulkColdEmail  = "coldemail:bulk"
	PermissionReadQuota      = "coldemail:stats"
	PermissionManageTemplate = "template:write"
	PermissionMatchJobs      = "match:jobs"

	// 招聘方操作
	PermissionMatchCandidates = "match:candidates"

	// 管理操作
	PermissionReplayOutbox = "outbox:replay"
)

// 角色常量
const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
	RoleAdmin     = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleCandidate: {
		PermissionSendColdEmail,
		PermissionBulkColdEmail,
		PermissionReadQuota,
		PermissionManageTemplate,
		PermissionMatchJobs,
	},
	RoleRecruiter: {
		PermissionMatchCandidates,
	},
	RoleAdmin: {
		PermissionReadQuota,
		PermissionMatchJobs,
		PermissionMatchCandidates,
		PermissionReplayOutbox,
	},
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查用户是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int64, role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int64
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
