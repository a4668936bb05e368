package config

import "time"

// Database selects and configures the database service.
type Database struct {
	Service string // memory, sql or mongo
	SQL     DB
	Mongo   Mongo
}

// DB holds the relational database settings.
type DB struct {
	GormEngine string `validate:"required,oneof=mysql postgres sqlite"`
	Host       string `validate:"required_unless=GormEngine sqlite"`
	Port       int
	User       string `validate:"required_unless=GormEngine sqlite"`
	Password   string
	Name       string `validate:"required"` // database name, file path for sqlite
	Extras     string
}

// Mongo holds the document store settings.
type Mongo struct {
	URI     string        `validate:"required"`
	Name    string        `validate:"required"` // database name
	Timeout time.Duration // connect and ping timeout, default 10s
}
