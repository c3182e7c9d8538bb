package refs

import "context"

// Ref 是 Ref Store 中的一个命名引用
type Ref struct {
	// Name 完整的引用名，例如 refs/tags/build-number-7
	Name string `json:"ref"`
	// SHA 引用指向的提交
	SHA string `json:"sha"`
}

// Response 是一次 Ref Store 调用的结果
// 状态码沿用托管服务的 HTTP 语义：200 列出成功，201 创建成功，204 删除成功，404 不存在
type Response struct {
	Status int
	// Refs 仅 List 成功时有值
	Refs []Ref
	// Payload 原始响应体，用于诊断信息
	Payload []byte
}

// Store 定义一个仓库范围内、按路径寻址的引用键空间
// 返回的 error 仅表示传输层失败；非预期的状态码通过 Response.Status 返回，由调用方分类
type Store interface {
	// List 列出名称以 prefix 开头的所有引用，prefix 形如 refs/tags/build-number-
	List(ctx context.Context, prefix string) (*Response, error)
	// Create 创建一个新引用，同名引用已存在时不会覆盖
	Create(ctx context.Context, ref Ref) (*Response, error)
	// Delete 删除指定名称的引用
	Delete(ctx context.Context, name string) (*Response, error)
	// Close 释放底层连接
	Close() error
}
