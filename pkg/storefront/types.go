package storefront

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Price tolerates both JSON numbers and numeric strings. Older catalog
// exports serialize prices as strings ("15000"), and cart math must not
// degrade to string concatenation because of it.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*p = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", str, err)
		}
		*p = Price(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Price(f)
	return nil
}

// Product is the catalog view a caller adds to the cart. Stock is the
// snapshot the add decision is made against.
type Product struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  Price  `json:"price"`
	Stock  int    `json:"stock"`
	ImgURL string `json:"imgUrl"`
}

// CartItem is one cart line. The JSON shape matches both the persisted
// document and the API cart payload.
type CartItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     Price  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImgURL    string `json:"imgUrl"`
	Stock     int    `json:"stock"`
}

// User is the authenticated profile held by the session.
type User struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Email                string `json:"email"`
	IsAdmin              bool   `json:"isAdmin"`
	ImageProfile         string `json:"imageProfile"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
	City                 string `json:"city"`
	IdentificationType   string `json:"identificationType"`
	IdentificationNumber string `json:"identificationNumber"`
}

// ProfileComplete reports whether every field required for checkout is
// filled in. It is derived on demand, never stored.
func (u *User) ProfileComplete() bool {
	return u.Name != "" &&
		u.Email != "" &&
		u.Phone != "" &&
		u.Address != "" &&
		u.City != "" &&
		u.IdentificationType != "" &&
		u.IdentificationNumber != ""
}
