package models

import "github.com/uptrace/bun"

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:se"`

	Key   string `bun:",pk" json:"key"`
	Value string `json:"value"`
}
