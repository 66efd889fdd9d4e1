// Package tgui contains small Telegram UI helpers: inline keyboard
// building, callback data packing, and HTML-safe text formatting.
package tgui
