// Package models contains GORM persistence models and their converters to
// and from domain types. Domain packages never see these types.
package models
