package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/mall/internal/domain"
)

const tokenTTL = time.Hour

// Claims — полезная нагрузка access-токена.
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Service отвечает за регистрацию, вход и проверку access-токенов.
type Service struct {
	customers domain.CustomerRepository
	secret    []byte
	logger    *log.Entry
}

// NewService создаёт сервис аутентификации с заданным ключом подписи.
func NewService(customers domain.CustomerRepository, secret string, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}
	return &Service{
		customers: customers,
		secret:    []byte(secret),
		logger:    logger,
	}
}

// Register создаёт учётную запись покупателя. Пароль хранится только
// в виде bcrypt-хеша.
func (s *Service) Register(ctx context.Context, username, password, email, phone string) (domain.Customer, error) {
	if username == "" || password == "" {
		return domain.Customer{}, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("hash password: %w", err)
	}

	customer := domain.Customer{
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		Phone:        phone,
	}
	id, err := s.customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.ID = id

	s.logger.WithFields(log.Fields{
		"customer_id": id,
		"username":    username,
	}).Info("customer registered")

	return customer, nil
}

// Login проверяет пару логин/пароль и выдаёт подписанный токен.
// Несуществующий пользователь и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, username, password string) (string, domain.Customer, error) {
	customer, err := s.customers.GetByUsername(ctx, username)
	if err != nil {
		return "", domain.Customer{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return "", domain.Customer{}, domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(customer)
	if err != nil {
		return "", domain.Customer{}, fmt.Errorf("issue token: %w", err)
	}

	return token, customer, nil
}

// Profile возвращает учётную запись покупателя.
func (s *Service) Profile(ctx context.Context, customerID int64) (domain.Customer, error) {
	return s.customers.Get(ctx, customerID)
}

// UpdateProfile перезаписывает email и телефон покупателя и возвращает
// обновлённую учётную запись. Логин и пароль этим путём не меняются.
func (s *Service) UpdateProfile(ctx context.Context, customerID int64, email, phone string) (domain.Customer, error) {
	if err := s.customers.UpdateProfile(ctx, customerID, email, phone); err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", customerID).Info("customer profile updated")

	return s.customers.Get(ctx, customerID)
}

// ParseToken валидирует подпись и срок действия токена и возвращает claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	return claims, nil
}

// CustomerID возвращает идентификатор покупателя из claims.
func (c *Claims) CustomerID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

func (s *Service) issueToken(customer domain.Customer) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: customer.Username,
		Admin:    customer.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mall",
			Subject:   strconv.FormatInt(customer.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
