package model

// 用户类型
const (
	UserTypeDistributor = "distributor" // 经销商（店铺方）
	UserTypeClient      = "client"      // 买家
)

// User 平台用户
type User struct {
	BaseModel
	Email     string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username  string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Password  string `gorm:"size:255;not null" json:"-"` // bcrypt 哈希
	FirstName string `gorm:"size:150" json:"first_name"`
	LastName  string `gorm:"size:150" json:"last_name"`
	Company   string `gorm:"size:100" json:"company"`
	Position  string `gorm:"size:100" json:"position"`
	Type      string `gorm:"size:20;not null;index" json:"type"`
	IsActive  bool   `gorm:"not null" json:"is_active"`

	Contacts []ContactCard `gorm:"foreignKey:UserID" json:"contacts,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsDistributor() bool {
	return u.Type == UserTypeDistributor
}

// ContactCard 收货联系人
type ContactCard struct {
	BaseModel
	UserID    int64  `gorm:"index;not null" json:"user_id"`
	City      string `gorm:"size:50;not null" json:"city"`
	Street    string `gorm:"size:100;not null" json:"street"`
	House     string `gorm:"size:15" json:"house"`
	Apartment string `gorm:"size:15" json:"apartment"`
	Country   string `gorm:"size:50" json:"country"`
	Postcode  string `gorm:"size:20" json:"postcode"`
	Phone     string `gorm:"size:20;not null" json:"phone"`
}

func (ContactCard) TableName() string {
	return "contact_cards"
}
