// Package model 定义了聊天数据的核心结构
package model

// FileAttachment 文件附件元数据
// 上传接口不做真实存储，URL 是合成的
type FileAttachment struct {
	ID   string `json:"id"`   // 附件唯一标识
	Name string `json:"name"` // 原始文件名
	Type string `json:"type"` // MIME 类型
	Size int64  `json:"size"` // 文件大小（字节）
	URL  string `json:"url"`  // 合成的访问路径，如 /uploads/<name>
}
