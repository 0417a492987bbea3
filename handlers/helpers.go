package handlers

import "strconv"

// atoiOr convierte string → int; regresa def si no se puede.
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
