package model

// User 经由认证代理注入的会话用户. 引擎不做认证，只消费网关传来的身份.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}
