/*
 * headers.go, part of gocg.
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
 */

package top

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

func fi(s string) []string {
	return strings.Fields(s)
}

// Returns a string without gromacs comments (sequences starting with ';'),
// trailing and leading spaces, tabs and newlines
func cleanString(s string) string {
	f := strings.Split(s, ";")[0]
	return strings.Trim(f, "\r\n\t ")
}

func parseints(s ...string) ([]int, error) {
	r := make([]int, 0, len(s))
	for _, v := range s {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		r = append(r, i)
	}
	return r, nil
}

func parsefloats(s ...string) ([]float64, error) {
	r := make([]float64, 0, len(s))
	for _, v := range s {
		i, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		r = append(r, i)
	}
	return r, nil
}

type topHeader struct {
	wany *regexp.Regexp
	spec map[string]*regexp.Regexp
}

func newTopHeader() *topHeader {
	T := new(topHeader)
	T.wany = regexp.MustCompile(`^\[\p{Zs}*(\S+)\p{Zs}*\]$`)
	T.spec = make(map[string]*regexp.Regexp)
	for _, h := range []string{"moleculetype", "atoms", "bonds", "constraints", "angles", "dihedrals", "exclusions", "atomtypes", "defaults", "system", "molecules"} {
		T.spec[h] = regexp.MustCompile(`^\[\p{Zs}*` + h + `\p{Zs}*\]$`)
	}
	return T
}

// Returns true if the line is a Gromacs header. It discards comments.
func (T *topHeader) Is(line string) bool {
	return T.wany.MatchString(cleanString(line))
}

// Returns a string indicating which Gromacs top file header
// the line is, or an empty string if the line is not a header.
// Unknown headers are returned as they are written.
func (T *topHeader) Which(line string) string {
	line = cleanString(line)
	m := T.wany.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	for k, v := range T.spec {
		if v.MatchString(line) {
			return k
		}
	}
	return m[1]
}

// cond tracks the preprocessor conditionals of gromacs topologies,
// which can be nested.
type cond struct {
	defines []string
	stack   []bool
}

func newCond(defines []string) *cond {
	return &cond{defines: slices.Clone(defines)}
}

func (c *cond) active() bool {
	for _, v := range c.stack {
		if !v {
			return false
		}
	}
	return true
}

// read processes a line, and returns true if it is not a
// preprocessor directive and is not excluded by a conditional.
func (c *cond) read(line string) bool {
	f := fi(line)
	switch {
	case len(f) == 0:
		return false
	case f[0] == "#ifdef" || f[0] == "#ifndef":
		def := len(f) > 1 && slices.Contains(c.defines, f[1])
		c.stack = append(c.stack, def == (f[0] == "#ifdef"))
		return false
	case f[0] == "#else":
		if len(c.stack) > 0 {
			c.stack[len(c.stack)-1] = !c.stack[len(c.stack)-1]
		}
		return false
	case f[0] == "#endif":
		if len(c.stack) > 0 {
			c.stack = c.stack[:len(c.stack)-1]
		}
		return false
	case f[0] == "#define":
		if len(f) > 1 && c.active() {
			c.defines = append(c.defines, f[1])
		}
		return false
	}
	return c.active()
}
