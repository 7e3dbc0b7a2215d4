package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	LocalsKey = "USER_CONTEXT"

	KeyAPIToken     = "api_token"
	KeyRefreshToken = "refresh_token"
	KeyLastUsername = "last_username"
	KeyTargetPath   = "target_path"
)
