/*
 * structured.go, part of gocg.
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
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

func docSections(doc *Document, path string) ([]*section, []string, error) {
	if err := checkVersion(doc.Version, path); err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool)
	ret := make([]*section, 0, len(doc.Molecules))
	for _, m := range doc.Molecules {
		if m.Name == "" {
			return nil, nil, fmt.Errorf("%s: molecule without a name", path)
		}
		if seen[m.Name] {
			return nil, nil, &DuplicateSectionError{Section: m.Name, File: path}
		}
		seen[m.Name] = true
		ret = append(ret, &section{name: m.Name, file: path, beads: m.Beads, bonds: m.Bonds})
	}
	return ret, doc.Include, nil
}

func parseJSON(path string) ([]*section, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return docSections(&doc, path)
}

func parseYAML(path string) ([]*section, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var doc Document
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return docSections(&doc, path)
}

func parseTOML(path string) ([]*section, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	var doc Document
	if err := toml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return docSections(&doc, path)
}
