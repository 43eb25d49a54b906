package partner

import (
	"fmt"

	"github.com/festago/festago/internal/user"
)

// SignupInput carries the combined account and business profile fields
// for partner registration.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`

	BusinessName       string `json:"business_name"`
	BusinessNumber     string `json:"business_number"`
	RepresentativeName string `json:"representative_name"`
	BusinessType       string `json:"business_type"`
	Address            string `json:"address"`
	PostalCode         string `json:"postal_code,omitempty"`
	BusinessPhone      string `json:"business_phone,omitempty"`
	BusinessEmail      string `json:"business_email,omitempty"`

	BrandName  string            `json:"brand_name"`
	BrandIntro string            `json:"brand_intro"`
	Products   string            `json:"products"`
	SNSLinks   map[string]string `json:"sns_links,omitempty"`
	Website    string            `json:"website,omitempty"`
}

// Signup creates a partner account and its business profile as a unit.
// If profile creation fails, the freshly created user is removed so a
// retry does not hit a duplicate username.
func Signup(users user.Repository, partners Repository, in SignupInput) (*user.User, *Partner, error) {
	u := &user.User{
		Username: in.Username,
		Email:    in.Email,
		Role:     user.RolePartner,
		Phone:    in.Phone,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, nil, err
	}
	if err := users.Insert(u); err != nil {
		return nil, nil, err
	}

	phone := in.BusinessPhone
	if phone == "" {
		phone = in.Phone
	}
	email := in.BusinessEmail
	if email == "" {
		email = in.Email
	}

	p := &Partner{
		UserID:             u.ID,
		BusinessName:       in.BusinessName,
		BusinessNumber:     in.BusinessNumber,
		RepresentativeName: in.RepresentativeName,
		BusinessType:       in.BusinessType,
		Address:            in.Address,
		PostalCode:         in.PostalCode,
		Phone:              phone,
		Email:              email,
		BrandName:          in.BrandName,
		BrandIntro:         in.BrandIntro,
		Products:           in.Products,
		SNSLinks:           in.SNSLinks,
		Website:            in.Website,
	}
	if err := partners.Insert(p); err != nil {
		if delErr := users.Delete(u.ID); delErr != nil {
			return nil, nil, fmt.Errorf("failed to create partner profile: %w (user cleanup also failed: %v)", err, delErr)
		}
		return nil, nil, err
	}
	return u, p, nil
}
