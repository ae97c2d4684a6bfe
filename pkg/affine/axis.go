package affine

import (
	"fmt"

	"rtcontour/pkg/rterr"
)

// RotationAxis selects the axis a rotation is about
type RotationAxis int

const (
	Roll  RotationAxis = iota // about x
	Pitch                     // about y
	Yaw                       // about z
)

var rotationNames = [...]string{"roll", "pitch", "yaw"}

// ParseRotationAxis maps "roll", "pitch" or "yaw" to its axis.
func ParseRotationAxis(s string) (RotationAxis, error) {
	for i, name := range rotationNames {
		if s == name {
			return RotationAxis(i), nil
		}
	}
	return 0, rterr.InvalidArgument("rotate", "axis %q is not one of roll, pitch, yaw", s)
}

// Valid reports whether a is one of Roll, Pitch, Yaw.
func (a RotationAxis) Valid() bool { return a >= Roll && a <= Yaw }

func (a RotationAxis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("RotationAxis(%d)", int(a))
	}
	return rotationNames[a]
}

// TranslationAxis selects the axis a shift is along
type TranslationAxis int

const (
	X TranslationAxis = iota
	Y
	Z
)

var translationNames = [...]string{"x", "y", "z"}

// ParseTranslationAxis maps "x", "y" or "z" to its axis.
func ParseTranslationAxis(s string) (TranslationAxis, error) {
	for i, name := range translationNames {
		if s == name {
			return TranslationAxis(i), nil
		}
	}
	return 0, rterr.InvalidArgument("translate", "axis %q is not one of x, y, z", s)
}

// Valid reports whether a is one of X, Y, Z.
func (a TranslationAxis) Valid() bool { return a >= X && a <= Z }

func (a TranslationAxis) String() string {
	if !a.Valid() {
		return fmt.Sprintf("TranslationAxis(%d)", int(a))
	}
	return translationNames[a]
}
