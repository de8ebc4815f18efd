package model

import "errors"

var ErrorNotFound = errors.New("not found")
var ErrorDuplicate = errors.New("duplicate key")
var ErrorSessionNotFound = errors.New("session not found")
var ErrorSessionExpired = errors.New("session expired")
var ErrorIDSpaceExhausted = errors.New("could not generate a unique identifier")
