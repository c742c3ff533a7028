package keys

import "fmt"

// named holds the canonical named keys.
var named = map[string]struct{}{}

// aliases maps alternative spellings onto canonical names.
var aliases = map[string]string{
	"escape":      "esc",
	"return":      "enter",
	"del":         "delete",
	"ins":         "insert",
	"pgup":        "page_up",
	"pageup":      "page_up",
	"pgdn":        "page_down",
	"pagedown":    "page_down",
	"control":     "ctrl",
	"lctrl":       "ctrl_l",
	"rctrl":       "ctrl_r",
	"lshift":      "shift_l",
	"rshift":      "shift_r",
	"lalt":        "alt_l",
	"ralt":        "alt_r",
	"altgr":       "alt_gr",
	"option":      "alt",
	"super":       "cmd",
	"win":         "cmd",
	"meta":        "cmd",
	"command":     "cmd",
	"lcmd":        "cmd_l",
	"rcmd":        "cmd_r",
	"capslock":    "caps_lock",
	"numlock":     "num_lock",
	"scrolllock":  "scroll_lock",
	"printscreen": "print_screen",
	"prtsc":       "print_screen",
	"bs":          "backspace",
	"cr":          "enter",
	"arrowup":     "up",
	"arrowdown":   "down",
	"arrowleft":   "left",
	"arrowright":  "right",
}

func init() {
	for _, n := range []string{
		"alt", "alt_l", "alt_r", "alt_gr",
		"backspace", "caps_lock",
		"cmd", "cmd_l", "cmd_r",
		"ctrl", "ctrl_l", "ctrl_r",
		"delete", "down", "end", "enter", "esc",
		"home", "insert", "left", "menu", "num_lock",
		"page_down", "page_up", "pause", "print_screen",
		"right", "scroll_lock",
		"shift", "shift_l", "shift_r",
		"space", "tab", "up",
	} {
		named[n] = struct{}{}
	}
	for i := 1; i <= 24; i++ {
		named[fmt.Sprintf("f%d", i)] = struct{}{}
	}
}
