package chatcolor

// Color is one of the eight chat name colors the platform assigns.
type Color string

const (
	Red    Color = "Red"
	Blue   Color = "Blue"
	Green  Color = "Green"
	Purple Color = "Purple"
	Orange Color = "Orange"
	Yellow Color = "Yellow"
	Pink   Color = "Pink"
	Almond Color = "Almond"
)

// palette is the platform's fixed color ordering; the computed index selects
// from it.
var palette = [8]Color{Red, Blue, Green, Purple, Orange, Yellow, Pink, Almond}

var hexCodes = map[Color]string{
	Red:    "#FD2943",
	Blue:   "#01A2FF",
	Green:  "#02B857",
	Purple: "#6B327C",
	Orange: "#DA8541",
	Yellow: "#F5CD30",
	Pink:   "#E8BAC8",
	Almond: "#D7C59A",
}

// Hex returns the color's chat palette value for embeds.
func (c Color) Hex() string { return hexCodes[c] }

func (c Color) String() string { return string(c) }

// nameValue folds the username's character codes into a signed sum. Each
// position's sign comes from its reverse index, shifted down by one for
// odd-length names, taken modulo four. Mirrors the platform's own chat color
// computation; do not change the arithmetic.
func nameValue(name string) int {
	value := 0
	n := len(name)
	for i := 0; i < n; i++ {
		c := int(name[i])
		rev := n - i
		if n%2 == 1 {
			rev--
		}
		if rev%4 >= 2 {
			c = -c
		}
		value += c
	}
	return value
}

// Predict returns the chat color the platform would assign to name. Pure:
// identical input always yields the identical color.
func Predict(name string) Color {
	return palette[((nameValue(name)%8)+8)%8]
}
