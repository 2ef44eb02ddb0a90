/*
 * atomicdata.go, part of gocg.
 *
 *
 * Copyright 2024 Raul Mera <rmeraa{at}academicos(dot)uta(dot)cl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package cg

import (
	"fmt"
	"strings"
)

//A map for assigning mass to elements.
//Note that just common "bio-elements" are present
var symbolMass = map[string]float64{
	"H":  1.008,
	"C":  12.01,
	"O":  16.00,
	"N":  14.01,
	"P":  30.97,
	"S":  32.06,
	"Se": 78.96,
	"K":  39.1,
	"Ca": 40.08,
	"Mg": 24.30,
	"Cl": 35.45,
	"Na": 22.99,
	"Cu": 63.55,
	"Zn": 65.38,
	"Co": 58.93,
	"Fe": 55.84,
	"Mn": 54.94,
	"Cr": 51.996,
	"Si": 28.08,
	"Be": 9.012,
	"F":  18.998,
	"Br": 79.904,
	"I":  126.90,
}

// SymbolFromName guesses the element symbol of an atom from its
// PDB/GROMACS-style name. It is not infallible.
func SymbolFromName(name string) (string, error) {
	name = strings.ToUpper(strings.TrimLeft(strings.TrimSpace(name), "0123456789"))
	if name == "" {
		return "", fmt.Errorf("can't guess the symbol of an empty atom name")
	}
	symbol := ""
	switch {
	case name[0] == 'H':
		symbol = "H"
	case name[0] == 'C':
		switch name {
		case "CU":
			symbol = "Cu"
		case "CO":
			symbol = "Co"
		case "CL", "CLA":
			symbol = "Cl"
		case "CA2+", "CAL":
			symbol = "Ca"
		default:
			symbol = "C"
		}
	case name[0] == 'N':
		if name == "NA" || name == "NA+" {
			symbol = "Na"
		} else {
			symbol = "N"
		}
	case name[0] == 'O':
		symbol = "O"
	case name[0] == 'P':
		symbol = "P"
	case name[0] == 'S':
		switch name {
		case "SE":
			symbol = "Se"
		case "SOD":
			symbol = "Na"
		default:
			symbol = "S"
		}
	case strings.HasPrefix(name, "ZN"):
		symbol = "Zn"
	case strings.HasPrefix(name, "MG"):
		symbol = "Mg"
	case strings.HasPrefix(name, "FE"):
		symbol = "Fe"
	case name[0] == 'K':
		symbol = "K"
	case name[0] == 'F':
		symbol = "F"
	}
	if symbol == "" {
		return "", fmt.Errorf("couldn't guess symbol from atom name %s", name)
	}
	return symbol, nil
}

// MassFromName returns the mass of the element guessed from the atom name.
func MassFromName(name string) (float64, error) {
	symbol, err := SymbolFromName(name)
	if err != nil {
		return 0, err
	}
	return symbolMass[symbol], nil
}
