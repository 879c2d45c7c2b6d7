package service

import "errors"

var ErrUnknownSymbol = errors.New("no consolidator configured for symbol")
