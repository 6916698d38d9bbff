package models

// User represents a storefront customer or administrator.
type User struct {
	BaseModel
	Name                 string  `json:"name"`
	Email                string  `gorm:"uniqueIndex" json:"email"`
	PasswordHash         string  `json:"-"`
	IsAdmin              bool    `json:"isAdmin"`
	IsBlocked            bool    `json:"isBlocked"`
	ImageProfile         string  `json:"imageProfile"`
	Phone                string  `json:"phone"`
	Address              string  `json:"address"`
	City                 string  `json:"city"`
	IdentificationType   string  `json:"identificationType"`
	IdentificationNumber string  `json:"identificationNumber"`
	AuthProvider         string  `json:"-"` // local|auth0
	Orders               []Order `json:"orders,omitempty"`
}

// ProfileComplete reports whether the user has filled the contact fields
// required before checkout. Derived on demand, never stored.
func (u *User) ProfileComplete() bool {
	return u.Name != "" &&
		u.Email != "" &&
		u.Phone != "" &&
		u.Address != "" &&
		u.City != "" &&
		u.IdentificationType != "" &&
		u.IdentificationNumber != ""
}
