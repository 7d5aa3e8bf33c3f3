package models

import "gorm.io/gorm"

// Strategy describes a trading strategy trades and tickers can reference.
type Strategy struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex"`
	PEMethod    string `json:"pe_method,omitempty"`
	SLMethod    string `json:"sl_method,omitempty"`
	TPMethod    string `json:"tp_method,omitempty"`
	Description string `json:"description,omitempty"`
}
