package domain

import "time"

// Customer представляет учётную запись покупателя (таблица customer).
// Пароль хранится только в виде bcrypt-хеша.
type Customer struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Phone        string
	Admin        bool
	CreatedAt    time.Time
}
