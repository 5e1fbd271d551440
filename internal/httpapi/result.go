package httpapi

// Result 统一响应结构
// - code: 2000 表示成功，其它为错误码
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

// 响应码
const (
	ResultSuccess       = 2000
	ResultError         = -1
	ResultInvalidConfig = 4001 // 设置非法
	ResultSessionActive = 4091 // 会话已在进行中
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return FailCode(ResultError, message)
}

// FailCode 带业务错误码的失败响应
func FailCode(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message}
}
