package eventmodels

import (
	"encoding/json"
	"strings"
)

type Symbol string

func (s Symbol) String() string {
	return strings.ToUpper(string(s))
}

func (s Symbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func NewSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}
