package models

type UserSubData struct {
	Email     string `form:"email" json:"email" binding:"required,email"`
	City      string `form:"city" json:"city" binding:"required"`
	Frequency string `form:"frequency" json:"frequency" binding:"required,oneof=hourly daily"`
}
