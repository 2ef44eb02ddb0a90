/*
 * native.go, part of gocg.
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

package cfg

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// stripComment removes everything after a ';' or a '#' that doesn't start
// a directive.
func stripComment(line string) string {
	if i := strings.Index(line, ";"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#include") {
		return line
	}
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// parseNative reads the sectioned format:
//
//	#include "other.map"
//	[ SOL ]
//	W P4 OW HW1 HW2
func parseNative(path string) ([]*section, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var sections []*section
	var includes []string
	var current *section
	seen := make(map[string]bool)
	s := bufio.NewScanner(f)
	n := 0
	for s.Scan() {
		n++
		line := stripComment(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#include") {
			inc := strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "#include")), "\"'<>")
			if inc == "" {
				return nil, nil, fmt.Errorf("%s:%d: #include without a file", path, n)
			}
			includes = append(includes, inc)
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, nil, fmt.Errorf("%s:%d: unterminated section header %q", path, n, line)
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, nil, fmt.Errorf("%s:%d: empty section name", path, n)
			}
			if seen[name] {
				return nil, nil, &DuplicateSectionError{Section: name, File: path}
			}
			seen[name] = true
			current = &section{name: name, file: path}
			sections = append(sections, current)
			continue
		}
		if current == nil {
			return nil, nil, fmt.Errorf("%s:%d: line outside any section: %q", path, n, line)
		}
		current.lines = append(current.lines, strings.Fields(line))
	}
	if err := s.Err(); err != nil {
		return nil, nil, err
	}
	return sections, includes, nil
}
