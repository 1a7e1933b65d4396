package payload

import "errors"

// Verhoeff check digit tables (dihedral group D5). Catches every
// single-digit error and every transposition of adjacent digits, which
// the manual pairing code's final digit relies on (spec §192).
var verhoeffMul = [10][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

var verhoeffPerm = [8][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

var verhoeffInv = [10]uint8{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

var ErrVerhoeffBadDigit = errors.New("payload: non-digit character in verhoeff input")

func verhoeffPermute(digits []byte) (int, error) {
	c := 0
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if d < '0' || d > '9' {
			return 0, ErrVerhoeffBadDigit
		}
		pos := (len(digits) - i) % 8
		c = int(verhoeffMul[c][verhoeffPerm[pos][d-'0']])
	}
	return c, nil
}

// VerhoeffChecksum returns the check digit ('0'-'9') for digits.
func VerhoeffChecksum(digits string) (byte, error) {
	c, err := verhoeffPermute([]byte(digits))
	if err != nil {
		return 0, err
	}
	return '0' + verhoeffInv[c], nil
}

// VerhoeffValidate reports whether digits' trailing character is a valid
// check digit for the digits preceding it.
func VerhoeffValidate(digits string) bool {
	if len(digits) == 0 {
		return false
	}
	check, err := VerhoeffChecksum(digits[:len(digits)-1])
	if err != nil {
		return false
	}
	return check == digits[len(digits)-1]
}
