package model

import (
	"strconv"
	"strings"
)

// Record 是可以写入远程索引的一条记录，DocumentRecord 与 KbRecord 共用同一条写入路径。
type Record interface {
	RecordKey() string
}

// DocumentRecord 代表写入文档索引的一个文本分块。
// Vector 只在 VectorSemantic 索引中填充；SourceFile 用于 PlainText 索引，
// VectorSemantic 索引没有 sourcefile 字段，来源文件名写入 Metadata。
type DocumentRecord struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Vector     []float32 `json:"content_vector,omitempty"`
	SourceFile string    `json:"sourcefile,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

// RecordKey 实现 Record。
func (r DocumentRecord) RecordKey() string { return r.ID }

// KbRecord 是知识库缓存中的一条问答记录。
type KbRecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	IndexType      string    `json:"indexType"`
	IndexName      string    `json:"indexName"`
	VectorQuestion []float32 `json:"vectorQuestion"`
	Answer         string    `json:"answer"`
}

// RecordKey 实现 Record。
func (r KbRecord) RecordKey() string { return r.ID }

// Chunk 是分块流水线产出的一页文本。
type Chunk struct {
	PageContent string `json:"page_content"`
}

var idReplacer = strings.NewReplacer(
	".", "_",
	" ", "_",
	":", "_",
	"/", "_",
	",", "_",
	"&", "_",
)

// SanitizeID 由文件名与序号生成文档 ID："{fileName}-{counter}"，并将 `. :/,&` 替换为 `_`。
// 序号以十进制数字结尾且数字不会被替换，因此同一文件名下不同序号的 ID 必然不同。
func SanitizeID(fileName string, counter int) string {
	return idReplacer.Replace(fileName + "-" + strconv.Itoa(counter))
}
