package dto

type CreatePublicationInput struct {
	Title string `json:"title" binding:"required,min=5"`
	Text  string `json:"text" binding:"required,min=10"`
}

// UpdatePublicationInput treats an empty field as not sent.
type UpdatePublicationInput struct {
	Title string `json:"title" binding:"omitempty,min=5"`
	Text  string `json:"text" binding:"omitempty,min=10"`
}

// RateInput without a rate records a rating of 0.
type RateInput struct {
	Rate *float64 `json:"rate" binding:"omitempty,min=0,max=5"`
}

type CommentInput struct {
	Text string `json:"text" binding:"required"`
}

type SearchFilter struct {
	Query string `form:"q" binding:"required"`
	Limit int64  `form:"limit" binding:"omitempty,min=1,max=50"`
}
