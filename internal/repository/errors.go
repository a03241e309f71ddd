package repository

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrThemeNotFound      = errors.New("theme not found")
	ErrEmailNotFound      = errors.New("email not found")
	ErrPhoneNotFound      = errors.New("phone not found")
	ErrCredentialNotFound = errors.New("credential not found")
)
