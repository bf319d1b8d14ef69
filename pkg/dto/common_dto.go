package dto

import "io"

type MessageResponse struct {
	Msg string `json:"msg"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// AvatarFile is an uploaded avatar image.
type AvatarFile struct {
	Reader   io.Reader
	FileName string
}
