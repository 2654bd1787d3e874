package main

import (
	"fmt"

	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/models"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserCmd struct {
	Email          string `required:"" help:"email address of the user to create"`
	Password       string `required:"" help:"password of the user to create"`
	DisplayName    string `help:"display name, defaults to the email local part"`
	University     string `required:"" help:"university the user graduated from"`
	GraduationYear int    `required:"" help:"year of graduation"`
	Field          string `help:"field of study"`
	Role           string `default:"alumni" help:"role of the user"`
}

func (c *CreateUserCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	passwd, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	displayName := c.DisplayName
	if displayName == "" {
		displayName = localPart(c.Email)
	}

	user := &models.User{
		ID:                snowflake.Now(),
		Email:             c.Email,
		EncryptedPassword: passwd,
		DisplayName:       displayName,
		Role:              c.Role,
	}
	if err := db.Create(user).Error; err != nil {
		return err
	}
	if err := db.Create(&models.Profile{
		ID:             snowflake.Now(),
		UserID:         user.ID,
		University:     c.University,
		GraduationYear: c.GraduationYear,
		Field:          c.Field,
		Public:         true,
	}).Error; err != nil {
		return err
	}

	fmt.Println("created user", user.ID)
	return nil
}

func localPart(email string) string {
	for i := range email {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
