package httpx

type ctxKey string

// CtxKeyUserID carries the authenticated user's id; set by the authentication
// middleware and read by user-keyed rate limiting.
const CtxKeyUserID ctxKey = "user_id"
