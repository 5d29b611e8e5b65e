//go:build headless

package main

import "errors"

func pickCore() (string, error) {
	return "", errors.New("no core given, use -core")
}

func pickContent() string { return "" }
