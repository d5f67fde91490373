package model

type UserCreate struct {
	Username     string
	Email        string
	PasswordHash string
}

type User struct {
	ID int64
	UserCreate
}
