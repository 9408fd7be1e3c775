package db

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Username  string `gorm:"unique;not null"`
	Password  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户；
// 账号已存在但密码不一致时重新哈希并保存。
// userID 非空时用作新账号的主键，方便与单用户部署的默认 ID 对齐。
func EnsureUser(gdb *gorm.DB, userID, username, password string) (*User, error) {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil, nil
	}

	if gdb == nil {
		return nil, errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		user := User{ID: strings.TrimSpace(userID), Username: trimmedUser, Password: string(hashed)}
		if err := gdb.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(existing.Password), []byte(trimmedPassword)) == nil {
		return &existing, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := gdb.Model(&existing).Update("password", string(hashed)).Error; err != nil {
		return nil, err
	}
	existing.Password = string(hashed)
	return &existing, nil
}

// Authenticate 校验用户名与密码，失败时返回 gorm.ErrRecordNotFound 或 bcrypt 的错误。
func Authenticate(gdb *gorm.DB, username, password string) (*User, error) {
	var user User
	if err := gdb.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, err
	}
	return &user, nil
}
