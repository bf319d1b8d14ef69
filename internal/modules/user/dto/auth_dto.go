package dto

type RegisterInput struct {
	Username  string `json:"username" binding:"required,min=6,alphanum"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=10"`
	Birthdate string `json:"birthdate" binding:"required,datetime=2006-01-02"`
}

// LoginInput accepts either the username or the email.
type LoginInput struct {
	Username string `json:"username" binding:"required_without=Email"`
	Email    string `json:"email" binding:"required_without=Username"`
	Password string `json:"password" binding:"required"`
}
