package dto

// ==================== 统一响应 ====================

// Response 成功响应，Status 为 true 或一段描述
type Response struct {
	Status interface{} `json:"Status"`
	Data   interface{} `json:"Data,omitempty"`
}

// ErrorResponse 失败响应，Code 为稳定的机器可读错误码
type ErrorResponse struct {
	Status bool   `json:"Status"`
	Error  string `json:"Error"`
	Code   string `json:"Code"`
}

func Fail(code, msg string) ErrorResponse {
	return ErrorResponse{Status: false, Error: msg, Code: code}
}
