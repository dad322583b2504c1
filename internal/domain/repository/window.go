package repository

import "SectorFlow/internal/domain/models"

// DefaultWindow returns the window served when none is requested.
func DefaultWindow() models.Window { return models.Window1D }

// NormalizeWindow converts a raw string to a valid window (or default).
func NormalizeWindow(s string) models.Window {
	if s == "" {
		return DefaultWindow()
	}
	w, err := models.ParseWindow(s)
	if err != nil {
		return DefaultWindow()
	}
	return w
}
