/*
 * stf.go, part of gocg.
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

package stf

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	cg "github.com/rmera/gocg"
	v3 "github.com/rmera/gocg/v3"
	"gonum.org/v1/gonum/mat"
)

const (
	lzwLitwidth int = 8
	defaultPrec int = 2
	ang2nm          = 0.1
)

//Write!

// StfW is a writer for STF trajectories. It takes coordinates in nm.
type StfW struct {
	f         *os.File
	h         io.WriteCloser
	natoms    int
	filename  string
	writeable bool
	prec      int
	frames    int
}

// Close flushes the compressor and closes the file.
func (S *StfW) Close() {
	if S == nil {
		return
	}
	if S.writeable {
		S.h.Close()
		S.f.Close()
	}
	S.writeable = false
}

// Len returns the number of atoms per frame.
func (S *StfW) Len() int {
	return S.natoms
}

// Frames returns the number of frames written so far.
func (S *StfW) Frames() int {
	return S.frames
}

//compatibility with Gonum
func (S *StfW) WNextDense(dcoord *mat.Dense) error {
	coord := v3.Dense2Matrix(dcoord)
	err := S.WNext(coord)
	if err != nil {
		err = errDecorate(err, "WNextDense")
	}
	return err
}

// WNext writes a frame with the coordinates in coord, in nm. If
// box is given, and has at least 9 elements, the box vectors (in nm) are written too.
func (S *StfW) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	v := coord.NVecs()
	if v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	var temp [3]int
	var floats [3]float64
	var str string
	for i := 0; i < v; i++ {
		floats[0] = coord.At(i, 0) / ang2nm
		floats[1] = coord.At(i, 1) / ang2nm
		floats[2] = coord.At(i, 2) / ang2nm
		str = coordsEncode(floats, temp, S.prec)
		if _, err := S.h.Write([]byte(str)); err != nil {
			return Error{err.Error(), S.filename, []string{"WNext"}, true}
		}
	}
	var err error
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		_, err = S.h.Write([]byte(fmt.Sprintf("* %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f\n", b[0]/ang2nm,
			b[1]/ang2nm, b[2]/ang2nm, b[3]/ang2nm, b[4]/ang2nm, b[5]/ang2nm, b[6]/ang2nm, b[7]/ang2nm, b[8]/ang2nm)))
	} else {
		_, err = S.h.Write([]byte("*\n"))
	}
	if err != nil {
		return Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	S.frames++
	return nil
}

// compressWriter returns the function that wraps the file with the
// compression that corresponds to the name of the file.
func compressWriter(name string, level int) func(io.Writer) (io.WriteCloser, error) {
	zstdwriter := func(a io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, level) }
	case 'r':
		return func(a io.Writer) (io.WriteCloser, error) { return flate.NewWriter(a, level) }
	default:
		return zstdwriter
	}
}

// NewWriter creates an STF file called name, for frames with natoms atoms. The
// key-value pairs in header, if any, are written in the header. The "prec" key,
// if present, sets the precision. compressionLevel is only used for gzip and
// deflate files.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	var level int = flate.BestCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	if name == "" {
		return nil, Error{"Empty file name", name, []string{"NewWriter"}, true}
	}
	S := new(StfW)
	S.filename = name
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.h, err = compressWriter(name, level)(S.f)
	if err != nil {
		S.f.Close()
		return nil, Error{"Can't write header " + err.Error(), S.filename, []string{"NewWriter"}, true}
	}
	S.natoms = natoms
	S.writeable = true
	S.prec = defaultPrec
	if header == nil {
		header = make(map[string]string)
	}
	if p, ok := header["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec > 0 {
			S.prec = prec
		} else {
			log.Printf("Invalid precision for trajectory %s. Will use the default", S.filename)
		}
	}
	header["prec"] = strconv.Itoa(S.prec)
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	headerstr := ""
	for _, k := range keys {
		headerstr += fmt.Sprintf("%s=%v\n", k, header[k])
	}
	S.h.Write([]byte(headerstr))
	S.h.Write([]byte(fmt.Sprintf("** %d\n", S.natoms)))
	return S, nil
}

//Read!

// StfR is a reader for STF trajectories. It delivers coordinates in nm.
type StfR struct {
	f            *os.File
	lzw          io.ReadCloser
	h            *bufio.Reader
	intermediate *bufio.Reader
	natoms       int
	filename     string
	prec         int
	readable     bool
	dt           float64
	t0           float64
	frame        int //frames read so far
}

//This will cause additional indirections
//but I suppose it won't matter, as each call will
//take enough time to make those delays irrelevant.
type stdql struct {
	closeql func()
	*zstd.Decoder
}

// Close Closes the object. It can not be used after this call
func (s stdql) Close() error {
	s.closeql()
	return nil
}

func coordsEncode(f [3]float64, temp [3]int, prec int) string {
	p := 100.0
	if prec > 0 && prec != 2 { //2 is the current value, so we do nothign in that case
		p = math.Pow(10.0, float64(prec))
	}
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * p))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

func compressReader(name string) func(io.Reader) (io.ReadCloser, error) {
	zstdreader := func(a io.Reader) (io.ReadCloser, error) {
		r, err := zstd.NewReader(a)
		if err != nil {
			return nil, err
		}
		return &stdql{r.Close, r}, nil
	}
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	case 'r':
		return func(a io.Reader) (io.ReadCloser, error) { return flate.NewReader(a), nil }
	default:
		return zstdreader
	}
}

// New opens a STF trajectory for reading, and returns a pointer
// to the handle, a map with the metadata (which can be empty)
// and error or nil.
func New(name string) (*StfR, map[string]string, error) {
	if name == "" {
		return nil, nil, Error{"Empty file name", name, []string{"New"}, true}
	}
	S := new(StfR)
	S.natoms = -1 //just so we know if things don't work
	S.prec = defaultPrec
	m := make(map[string]string)
	var err error
	S.filename = name
	S.f, err = os.Open(S.filename)
	if err != nil {
		return nil, nil, Error{UnableToOpen + ": " + err.Error(), S.filename, []string{"New"}, true}
	}
	S.intermediate = bufio.NewReader(S.f)
	S.lzw, err = compressReader(name)(S.intermediate)
	if err != nil {
		S.f.Close()
		return nil, nil, Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
	}
	S.h = bufio.NewReader(S.lzw)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.closeFiles()
			return nil, nil, Error{"Can't read header " + err.Error(), S.filename, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.closeFiles()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", str), S.filename, []string{"New"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil || S.natoms <= 0 {
				S.closeFiles()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", nat[1]), S.filename, []string{"New"}, true}
			}
			break
		}
		kv := strings.SplitN(str, "=", 2)
		if len(kv) != 2 {
			S.closeFiles()
			return nil, nil, Error{WrongFormat + ": malformed header line " + str, S.filename, []string{"New"}, true}
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	S.readable = true
	if p, ok := m["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec > 0 {
			S.prec = prec
		} else {
			log.Printf("Invalid precision for trajectory %s. Will assume the default", S.filename)
		}
	}
	if d, ok := m["dt"]; ok {
		if S.dt, err = strconv.ParseFloat(d, 64); err != nil {
			log.Printf("Invalid time step for trajectory %s. Times will be 0", S.filename)
			S.dt = 0
		}
	}
	if t, ok := m["t0"]; ok {
		if S.t0, err = strconv.ParseFloat(t, 64); err != nil {
			S.t0 = 0
		}
	}
	return S, m, nil
}

// Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *StfR) Readable() bool {
	return S.readable
}

// Time returns the time, in ps, of the last frame read. It is 0 unless the
// header contains a time step.
func (S *StfR) Time() float64 {
	if S.frame == 0 {
		return S.t0
	}
	return S.t0 + float64(S.frame-1)*S.dt
}

func coordsDecode(str string, temp *[3]float64, prec int) error {
	p := 100.0
	if prec > 0 && prec != 2 { //2 is just the current value, so we can save the operation
		p = math.Pow(10.0, float64(prec))
	}
	s := strings.Fields(str)
	if len(s) < 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too few fields: %s", str)
	}
	if len(s) > 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too many fields: %s", str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / p
	}
	return nil
}

// Next puts in the given matrix (c) the coordinates, in nm, for the next frame of the trajectory
// and, if given, and the information is present, puts the box vector information in box
// Returns error if the operation is not successful. If the error is a cg.LastFrameError, the end of the
// trajectory has been reached, not an actual error.
func (S *StfR) Next(c *v3.Matrix, box ...[]float64) error {
	if !S.readable {
		return Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadBytes('\n')
		if err != nil {
			// EOF should only happen when reading the first atom
			if errors.Is(err, io.EOF) && i == 0 && len(b) == 0 {
				//nothing bad happened here, the trajectory just ended.
				S.Close()
				return newlastFrameError(S.filename, "Next")
			}
			return Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		line := strings.TrimSuffix(string(b), "\n")
		if strings.HasPrefix(line, "*") {
			return Error{fmt.Sprintf("%s: frame with %d atoms, %d expected", WrongFormat, i, S.natoms), S.filename, []string{"Next"}, true}
		}
		err = coordsDecode(line, &temp, S.prec)
		if err != nil {
			return Error{err.Error(), S.filename, []string{"Next"}, true}
		}
		if c == nil {
			continue //We ignore this whole frame, reading the content but not saving it.
			//Note that we still check the frame for correctness.
		}
		for j, v := range temp {
			c.Set(i, j, v*ang2nm)
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(s) > 0) {
		return Error{"Can't read the frame termination mark " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if len(s) == 0 || s[0] != '*' {
		return Error{fmt.Sprintf("%s: frame with more than %d atoms", WrongFormat, S.natoms), S.filename, []string{"Next"}, true}
	}
	S.frame++
	if len(box) > 0 && len(box[0]) >= 9 {
		readBox(S.filename, s, box[0])
	}
	return nil
}

// readBox puts in box the 9 numbers after the frame termination mark, in nm.
func readBox(filename, s string, box []float64) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 10 { // The "*" and the 9 numbers
		for i := range box {
			box[i] = 0.0
		}
		if len(fields) > 1 {
			log.Printf("Trajectory file %s does not contain correct box information: %s", filename, fields) //just a head-up
		}
		return
	}
	var errbox error
	for j, v := range fields[1:10] {
		box[j], errbox = strconv.ParseFloat(v, 64)
		if errbox != nil {
			break
		}
		box[j] *= ang2nm
	}
	//If we got an error reading any of the values, we just set the whole thing to zero
	//and log, no error returned.
	if errbox != nil {
		log.Printf("Failed to read box in a frame from %s", filename) //just a head-up
		for i := range box {
			box[i] = 0.0
		}
	}
}

func (S *StfR) closeFiles() {
	if S.lzw != nil {
		S.lzw.Close()
	}
	S.f.Close()
}

// Close closes the object, and marks it as unreadable
func (S *StfR) Close() {
	if !S.readable {
		return
	}
	S.closeFiles()
	S.readable = false
}

// Len returns the number of atoms in each frame of the trajectory.
func (S *StfR) Len() int {
	return S.natoms
}

//Errors

// errDecorate is a helper function that asserts that the error
// implements cg.Error and decorates the error with the caller's name before returning it.
// Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	err2, ok := err.(cg.Error)
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err2
}

// Error is the general structure for STF trajectory errors. It fullfills  cg.Error and cg.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	//Even thought this method does not use a pointer as a receiver, and tries to alter the received,
	//it should work, since E.deco is a slice, and hence a pointer itself.
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "stf") associated to the error
func (err Error) Format() string { return "stf" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the STF file or frame"
)

// lastFrameError implements cg.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

// NormalLastFrameTermination does nothing
func (E lastFrameError) NormalLastFrameTermination() {}

func (E lastFrameError) FileName() string { return E.fileName }

func (E lastFrameError) Error() string { return "EOF" }

func (E lastFrameError) Critical() bool { return false }

func (E lastFrameError) Format() string { return "stf" }

func (E lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}
