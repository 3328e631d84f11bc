package key

import "maps"

// Lookup is the table capability the resolver and normalizer depend on.
// Alias receives an already lower-cased label.
type Lookup interface {
	Alias(label string) (Key, bool)
	Code(code int) (Key, bool)
	ShiftedCode(code int) (Key, bool)
}

// Tables is an immutable set of alias and legacy code mappings.
type Tables struct {
	aliases map[string]Key
	codes   map[int]Key
	shifted map[int]Key
}

// NewTables builds tables from the given maps. Alias keys are lower-cased.
// The maps are copied.
func NewTables(aliases map[string]Key, codes, shifted map[int]Key) *Tables {
	t := &Tables{
		aliases: make(map[string]Key, len(aliases)),
		codes:   maps.Clone(codes),
		shifted: maps.Clone(shifted),
	}
	for label, k := range aliases {
		t.aliases[lower(label)] = k
	}
	if t.codes == nil {
		t.codes = map[int]Key{}
	}
	if t.shifted == nil {
		t.shifted = map[int]Key{}
	}
	return t
}

// DefaultTables returns the QWERTY-US reference tables.
func DefaultTables() *Tables {
	return NewTables(defaultAliases, defaultCodes, defaultShifted)
}

// Alias implements Lookup.
func (t *Tables) Alias(label string) (Key, bool) {
	k, ok := t.aliases[label]
	return k, ok
}

// Code implements Lookup.
func (t *Tables) Code(code int) (Key, bool) {
	k, ok := t.codes[code]
	return k, ok
}

// ShiftedCode implements Lookup.
func (t *Tables) ShiftedCode(code int) (Key, bool) {
	k, ok := t.shifted[code]
	return k, ok
}

// Aliases returns a copy of the alias table.
func (t *Tables) Aliases() map[string]Key {
	return maps.Clone(t.aliases)
}

// Merge returns new tables with the overrides applied on top of t.
// t is left unchanged.
func (t *Tables) Merge(aliases map[string]Key, codes, shifted map[int]Key) *Tables {
	out := NewTables(t.aliases, t.codes, t.shifted)
	for label, k := range aliases {
		out.aliases[lower(label)] = k
	}
	maps.Copy(out.codes, codes)
	maps.Copy(out.shifted, shifted)
	return out
}

// defaultAliases maps lower-case labels to canonical keys.
var defaultAliases = map[string]Key{
	"any":          KeyAny,
	"unidentified": KeyUnidentified,
	"space":        KeySpace,
	"spacebar":     KeySpace,
	"enter":        KeyEnter,
	"return":       KeyEnter,
	"cr":           KeyEnter,
	"backspace":    KeyBackspace,
	"bs":           KeyBackspace,
	"tab":          KeyTab,
	"clear":        "Clear",
	"shift":        KeyShift,
	"control":      KeyControl,
	"ctrl":         KeyControl,
	"ctl":          KeyControl,
	"option":       KeyAlt,
	"alt":          KeyAlt,
	"capslock":     KeyCapsLock,
	"caps":         KeyCapsLock,
	"escape":       KeyEscape,
	"esc":          KeyEscape,
	"pageup":       KeyPageUp,
	"pgup":         KeyPageUp,
	"pagedown":     KeyPageDown,
	"pgdn":         KeyPageDown,
	"pgdown":       KeyPageDown,
	"end":          KeyEnd,
	"home":         KeyHome,
	"del":          KeyDelete,
	"delete":       KeyDelete,
	"up":           KeyArrowUp,
	"arrowup":      KeyArrowUp,
	"down":         KeyArrowDown,
	"arrowdown":    KeyArrowDown,
	"left":         KeyArrowLeft,
	"arrowleft":    KeyArrowLeft,
	"right":        KeyArrowRight,
	"arrowright":   KeyArrowRight,
	"printscreen":  KeyPrintScreen,
	"prtscn":       KeyPrintScreen,
	"insert":       KeyInsert,
	"ins":          KeyInsert,
	"add":          "+",
	"plus":         "+",
	"subtract":     "-",
	"minus":        "-",
	"decimal":      ".",
	"dot":          ".",
	"period":       ".",
	"comma":        ",",
	"divide":       "/",
	"forwardslash": "/",
	"backslash":    "\\",
	"multiply":     "*",
	"scroll":       KeyScrollLock,
	"scrolllock":   KeyScrollLock,
	"scrlk":        KeyScrollLock,
	"numlock":      KeyNumLock,
	"command":      KeyMeta,
	"win":          KeyMeta,
	"os":           KeyMeta,
	"meta":         KeyMeta,
	"apps":         KeyContextMenu,
	"contextmenu":  KeyContextMenu,
	"altgraph":     KeyAltGraph,
	"altgr":        KeyAltGraph,
	"f1":           KeyF1,
	"f2":           KeyF2,
	"f3":           KeyF3,
	"f4":           KeyF4,
	"f5":           KeyF5,
	"f6":           KeyF6,
	"f7":           KeyF7,
	"f8":           KeyF8,
	"f9":           KeyF9,
	"f10":          KeyF10,
	"f11":          KeyF11,
	"f12":          KeyF12,

	"medianexttrack":     "MediaTrackNext",
	"mediatracknext":     "MediaTrackNext",
	"mediatrackprevious": "MediaTrackPrevious",
	"mediaprevioustrack": "MediaTrackPrevious",
	"volumedown":         "AudioVolumeDown",
	"audiovolumedown":    "AudioVolumeDown",
	"volumeup":           "AudioVolumeUp",
	"audiovolumeup":      "AudioVolumeUp",
	"volumemute":         "AudioVolumeMute",
	"audiovolumemute":    "AudioVolumeMute",
	"mediaplaypause":     "MediaPlayPause",
	"play":               "MediaPlayPause",
	"pause":              KeyPause,
	"hangulmode":         "HangulMode",
	"hanjamode":          "HanjaMode",
}

// defaultCodes maps legacy key codes to their unshifted canonical keys.
// Numpad codes map to their main-keyboard counterparts.
var defaultCodes = map[int]Key{
	8:   KeyBackspace,
	9:   KeyTab,
	12:  "Clear",
	13:  KeyEnter,
	16:  KeyShift,
	17:  KeyControl,
	18:  KeyAlt,
	19:  KeyPause,
	20:  KeyCapsLock,
	21:  "HangulMode",
	25:  "HanjaMode",
	27:  KeyEscape,
	32:  KeySpace,
	33:  KeyPageUp,
	34:  KeyPageDown,
	35:  KeyEnd,
	36:  KeyHome,
	37:  KeyArrowLeft,
	38:  KeyArrowUp,
	39:  KeyArrowRight,
	40:  KeyArrowDown,
	44:  KeyPrintScreen,
	45:  KeyInsert,
	46:  KeyDelete,
	48:  "0",
	49:  "1",
	50:  "2",
	51:  "3",
	52:  "4",
	53:  "5",
	54:  "6",
	55:  "7",
	56:  "8",
	57:  "9",
	59:  ";",
	61:  "=",
	65:  "a",
	66:  "b",
	67:  "c",
	68:  "d",
	69:  "e",
	70:  "f",
	71:  "g",
	72:  "h",
	73:  "i",
	74:  "j",
	75:  "k",
	76:  "l",
	77:  "m",
	78:  "n",
	79:  "o",
	80:  "p",
	81:  "q",
	82:  "r",
	83:  "s",
	84:  "t",
	85:  "u",
	86:  "v",
	87:  "w",
	88:  "x",
	89:  "y",
	90:  "z",
	91:  KeyMeta,
	92:  KeyMeta,
	93:  KeyContextMenu,
	96:  "0",
	97:  "1",
	98:  "2",
	99:  "3",
	100: "4",
	101: "5",
	102: "6",
	103: "7",
	104: "8",
	105: "9",
	106: "*",
	107: "+",
	109: "-",
	110: ".",
	111: "/",
	112: KeyF1,
	113: KeyF2,
	114: KeyF3,
	115: KeyF4,
	116: KeyF5,
	117: KeyF6,
	118: KeyF7,
	119: KeyF8,
	120: KeyF9,
	121: KeyF10,
	122: KeyF11,
	123: KeyF12,
	144: KeyNumLock,
	145: KeyScrollLock,
	173: "AudioVolumeMute",
	174: "AudioVolumeDown",
	175: "AudioVolumeUp",
	176: "MediaTrackNext",
	177: "MediaTrackPrevious",
	179: "MediaPlayPause",
	181: "AudioVolumeMute",
	186: ";",
	187: "=",
	188: ",",
	189: "-",
	190: ".",
	191: "/",
	192: "`",
	219: "[",
	220: "\\",
	221: "]",
	222: "'",
	223: "`",
	224: "⌘",
	225: KeyAltGraph,
}

// defaultShifted maps legacy key codes to their shifted canonical keys.
var defaultShifted = map[int]Key{
	48:  ")",
	49:  "!",
	50:  "@",
	51:  "#",
	52:  "$",
	53:  "%",
	54:  "^",
	55:  "&",
	56:  "*",
	57:  "(",
	59:  "-",
	60:  "+",
	61:  "+",
	65:  "A",
	66:  "B",
	67:  "C",
	68:  "D",
	69:  "E",
	70:  "F",
	71:  "G",
	72:  "H",
	73:  "I",
	74:  "J",
	75:  "K",
	76:  "L",
	77:  "M",
	78:  "N",
	79:  "O",
	80:  "P",
	81:  "Q",
	82:  "R",
	83:  "S",
	84:  "T",
	85:  "U",
	86:  "V",
	87:  "W",
	88:  "X",
	89:  "Y",
	90:  "Z",
	173: "_",
	186: ":",
	187: "+",
	188: "<",
	189: "_",
	190: ">",
	191: "?",
	192: "~",
	219: "{",
	220: "|",
	221: "}",
	222: "\"",
}
