// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds table and column names shared by the SQL account stores.
package schema

import "strings"

// UserAccountTable represents the account table.
type UserAccountTable struct {
	Table         string
	ID            string
	Login         string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	LangKey       string
	Activated     string
	ActivationKey string
	ResetKey      string
	ResetDate     string
	Authorities   string
	CreatedBy     string
	CreatedAt     string
	UpdatedBy     string
	UpdatedAt     string
	Version       string
}

// UserAccount is the schema definition for users.account (PostgreSQL).
var UserAccount = UserAccountTable{
	Table:         "users.account",
	ID:            "id",
	Login:         "login",
	Email:         "email",
	PasswordHash:  "passwordhash",
	FirstName:     "firstname",
	LastName:      "lastname",
	LangKey:       "langkey",
	Activated:     "activated",
	ActivationKey: "activationkey",
	ResetKey:      "resetkey",
	ResetDate:     "resetdate",
	Authorities:   "authorities",
	CreatedBy:     "createdby",
	CreatedAt:     "createdat",
	UpdatedBy:     "updatedby",
	UpdatedAt:     "updatedat",
	Version:       "version",
}

// InTable returns the same column set bound to another table name. SQLite has
// no schemas, so its store uses UserAccount.InTable("account").
func (t UserAccountTable) InTable(name string) UserAccountTable {
	t.Table = name
	return t
}

// Columns returns all column names in scan order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Login, t.Email, t.PasswordHash, t.FirstName, t.LastName,
		t.LangKey, t.Activated, t.ActivationKey, t.ResetKey, t.ResetDate,
		t.Authorities, t.CreatedBy, t.CreatedAt, t.UpdatedBy, t.UpdatedAt,
		t.Version,
	}
}

// SelectList returns Columns joined for a SELECT clause.
func (t UserAccountTable) SelectList() string {
	return strings.Join(t.Columns(), ", ")
}
