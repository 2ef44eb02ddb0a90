/*
 * dcd.go, part of gocg.
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

package dcd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	cg "github.com/rmera/gocg"
	v3 "github.com/rmera/gocg/v3"
)

const mAXTITLE int32 = 80

// size in bytes of the CHARMM unit cell block: 6 doubles.
const unitCellBlock int32 = 48

const ang2nm = 0.1

// DCDObj is a container for a Charmm/NAMD binary trajectory file opened for reading.
// Coordinates and boxes are delivered in nm.
type DCDObj struct {
	natoms     int32
	readLast   bool //Have we read the last frame?
	readable   bool //Is it ready to be read?
	filename   string
	charmm     bool //Charmm traj?
	extrablock bool
	fourdim    bool
	fixed      int32 //Fixed atoms (not supported)
	nframes    int32 //as declared in the header
	istart     int32
	nsavc      int32
	delta      float32
	frame      int //frames read so far
	fhandle    *os.File
	dcd        io.Reader //The DCD data, maybe decompressed
	closer     io.Closer //the decompressor, if any
	dcdFields  [][]float32
	cell       [6]float64
	hascell    bool
	endian     binary.ByteOrder
}

// New opens the DCD file filename for reading. Files with the .gz (deflate)
// or .lzw extension are decompressed on the fly.
func New(filename string) (*DCDObj, error) {
	traj := new(DCDObj)
	if err := traj.initRead(filename); err != nil {
		traj.Close()
		return nil, errDecorate(err, "New")
	}
	traj.dcdFields = make([][]float32, 3)
	traj.dcdFields[0] = make([]float32, int(traj.natoms))
	traj.dcdFields[1] = make([]float32, int(traj.natoms))
	traj.dcdFields[2] = make([]float32, int(traj.natoms))
	return traj, nil
}

// Readable returns true if the object is ready to be read from
// false otherwise. It doesnt guarantee that there is something
// to read.
func (D *DCDObj) Readable() bool {
	return D.readable
}

// initRead initializes a DCDObj for reading.
// It requires only the filename, which must be valid.
// It support big and little endianness, charmm or (namd>=2.1) and no
// fixed atoms.
func (D *DCDObj) initRead(name string) error {
	D.endian = binary.LittleEndian
	NB := bytes.NewBuffer //shortness sake
	src, err := D.prepSource(name, "")
	if err != nil {
		return err
	}
	D.dcd = src
	binerr := func(err error) error {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	var check int32
	mark := make([]byte, 4)
	if _, err := io.ReadFull(D.dcd, mark); err != nil {
		return binerr(err)
	}
	//For some reason the first thing we should read is an 84.
	//If this fails it means that the file is big endian.
	if binary.LittleEndian.Uint32(mark) != 84 {
		D.endian = binary.BigEndian
		if binary.BigEndian.Uint32(mark) != 84 {
			return Error{WrongFormat + ": no header mark", D.filename, []string{"initRead"}, true}
		}
	}
	//Then the magic number "CORD", also for some unknown reason.
	magic := make([]byte, 4)
	if err := binary.Read(D.dcd, D.endian, magic); err != nil {
		return binerr(err)
	}
	if string(magic) != "CORD" {
		return Error{WrongFormat + ": wrong magic number", D.filename, []string{"initRead"}, true}
	}
	//We first read a big chuck for random access.
	buf := make([]byte, 80)
	if err := binary.Read(D.dcd, D.endian, buf); err != nil {
		return binerr(err)
	}
	//X-plor sets this last int to zero, charmm sets it to its version number.
	//if we have a charmm file we get some additional flags.
	if err := binary.Read(NB(buf[76:]), D.endian, &check); err != nil {
		return binerr(err)
	}
	if check == 0 {
		return Error{"X-plor DCD not supported", D.filename, []string{"initRead"}, true}
	}
	D.charmm = true
	if err := binary.Read(NB(buf[40:]), D.endian, &check); err != nil {
		return binerr(err)
	}
	if check != 0 {
		D.extrablock = true
	}
	if err := binary.Read(NB(buf[44:]), D.endian, &check); err != nil {
		return binerr(err)
	}
	if check == 1 {
		D.fourdim = true
	}
	binary.Read(NB(buf[0:]), D.endian, &D.nframes)
	binary.Read(NB(buf[4:]), D.endian, &D.istart)
	binary.Read(NB(buf[8:]), D.endian, &D.nsavc)
	if err := binary.Read(NB(buf[32:]), D.endian, &D.fixed); err != nil {
		return binerr(err)
	}
	//This should work only on Charmm and namd >=2.1
	if err := binary.Read(NB(buf[36:]), D.endian, &D.delta); err != nil {
		return binerr(err)
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return binerr(err)
	}
	if check != 84 {
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	var titlesize int32
	if err := binary.Read(D.dcd, D.endian, &titlesize); err != nil {
		return binerr(err)
	}
	//how many units of MAXTITLE does the title have?
	var ntitle int32
	if err := binary.Read(D.dcd, D.endian, &ntitle); err != nil {
		return binerr(err)
	}
	if ntitle < 0 || ntitle > 1000 {
		return Error{WrongFormat + ": bad title", D.filename, []string{"initRead"}, true}
	}
	title := make([]byte, mAXTITLE*ntitle)
	if err := binary.Read(D.dcd, D.endian, title); err != nil {
		return binerr(err)
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return binerr(err)
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return binerr(err)
	}
	if check != 4 { //one must read a 4 before the natoms
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &D.natoms); err != nil {
		return binerr(err)
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return binerr(err)
	}
	if check != 4 || D.natoms <= 0 { //and one more 4
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if D.fixed != 0 {
		return Error{"Fixed atoms not supported", D.filename, []string{"initRead"}, true}
	}
	D.readable = true
	return nil
}

// Next Reads the next frame in a DCDObj that has been initialized for read,
// and puts its coordinates, in nm, in keep. If keep is nil the frame is discarded.
// If box is given, and there is unit cell information, its 9 elements
// are set to the orthorhombic box vectors, in nm.
func (D *DCDObj) Next(keep *v3.Matrix, box ...[]float64) error {
	if !D.readable {
		return Error{TrajUnIni, D.filename, []string{"Next"}, true}
	}
	if err := D.nextRaw(D.dcdFields); err != nil {
		return errDecorate(err, "Next")
	}
	D.frame++
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		for i := range b {
			b[i] = 0
		}
		if D.hascell {
			//CHARMM order: A, gamma, B, beta, alpha, C
			b[0] = D.cell[0] * ang2nm
			b[4] = D.cell[2] * ang2nm
			b[8] = D.cell[5] * ang2nm
		}
	}
	if keep == nil {
		return nil
	}
	if r, _ := keep.Dims(); int32(r) < D.natoms {
		return Error{NotEnoughSpace, D.filename, []string{"Next"}, true}
	}
	for i := 0; i < int(D.natoms); i++ {
		keep.Set(i, 0, float64(D.dcdFields[0][i])*ang2nm)
		keep.Set(i, 1, float64(D.dcdFields[1][i])*ang2nm)
		keep.Set(i, 2, float64(D.dcdFields[2][i])*ang2nm)
	}
	return nil
}

// Time returns the time of the last frame read, in the units of the
// time step stored in the file (ps for files written by this package).
func (D *DCDObj) Time() float64 {
	nsavc := D.nsavc
	if nsavc <= 0 {
		nsavc = 1
	}
	if D.frame == 0 {
		return float64(D.istart) * float64(D.delta)
	}
	return (float64(D.istart) + float64(D.frame-1)*float64(nsavc)) * float64(D.delta)
}

// nextRaw reads the next frame into blocks, one slice of float32 per cartesian axis.
func (D *DCDObj) nextRaw(blocks [][]float32) error {
	if len(blocks[0]) != int(D.natoms) || len(blocks[1]) != int(D.natoms) || len(blocks[2]) != int(D.natoms) {
		return Error{NotEnoughSpace, D.filename, []string{"nextRaw"}, true}
	}
	if D.readLast {
		D.Close()
		return newlastFrameError(D.filename, "nextRaw")
	}
	D.hascell = false
	var blocksize int32
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		if errors.Is(err, io.EOF) {
			D.Close()
			return newlastFrameError(D.filename, "nextRaw")
		}
		return Error{ReadError + ": " + err.Error(), D.filename, []string{"nextRaw"}, true}
	}
	//Sadly, even when there is an extra block, it is not present in all
	//snapshots for some trajectories, so we must use the block size to see if
	//there is an extra block or if the X block starts inmediately.
	//A 48-byte block is taken as a unit cell even if there are 12 atoms.
	if D.extrablock && (blocksize != D.natoms*4 || blocksize == unitCellBlock) {
		block, err := D.readByteBlock(blocksize)
		if err != nil {
			return errDecorate(err, "nextRaw")
		}
		if blocksize == unitCellBlock {
			cellbuf := bytes.NewBuffer(block)
			if err := binary.Read(cellbuf, D.endian, D.cell[:]); err == nil {
				D.hascell = true
			}
		}
		blocksize = 0
	}
	//now get the coords, each as a slice of float32
	for i := 0; i < 3; i++ {
		if blocksize == 0 || i > 0 {
			if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
				return Error{ReadError + ": " + err.Error(), D.filename, []string{"nextRaw"}, true}
			}
		}
		if blocksize != D.natoms*4 {
			return Error{fmt.Sprintf("%s: block of %d bytes for %d atoms", WrongFormat, blocksize, D.natoms), D.filename, []string{"nextRaw"}, true}
		}
		if err := D.readFloat32Block(blocksize, blocks[i]); err != nil {
			return errDecorate(err, "nextRaw")
		}
	}
	//we skip the 4-D values if they exist. Apparently this is not present in the
	//last snapshot, so we use an EOF here to signal that we have read the last snapshot.
	if D.charmm && D.fourdim {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			if errors.Is(err, io.EOF) {
				D.readLast = true
			} else {
				return Error{ReadError + ": " + err.Error(), D.filename, []string{"nextRaw"}, true}
			}
		}
		if !D.readLast {
			if _, err := D.readByteBlock(blocksize); err != nil {
				return errDecorate(err, "nextRaw")
			}
		}
	}
	for _, b := range blocks {
		for _, v := range b {
			if math.IsNaN(float64(v)) {
				return Error{"NaN coordinates in frame", D.filename, []string{"nextRaw"}, true}
			}
		}
	}
	return nil
}

// Reads a block of blocksize bytes into block, which must have the
// appropiate size, and checks the trailing size mark.
func (D *DCDObj) readFloat32Block(blocksize int32, block []float32) error {
	var check int32
	if err := binary.Read(D.dcd, D.endian, block); err != nil {
		return Error{ReadError + ": " + err.Error(), D.filename, []string{"readFloat32Block"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{ReadError + ": " + err.Error(), D.filename, []string{"readFloat32Block"}, true}
	}
	if check != blocksize {
		return Error{SecurityCheckFailed, D.filename, []string{"readFloat32Block"}, true}
	}
	return nil
}

// Reads a block of blocksize bytes, checking the trailing size mark.
func (D *DCDObj) readByteBlock(blocksize int32) ([]byte, error) {
	var check int32
	if blocksize < 0 || blocksize > 1<<20 {
		return nil, Error{fmt.Sprintf("%s: unreasonable block size %d", WrongFormat, blocksize), D.filename, []string{"readByteBlock"}, true}
	}
	block := make([]byte, blocksize)
	if err := binary.Read(D.dcd, D.endian, block); err != nil {
		return nil, Error{ReadError + ": " + err.Error(), D.filename, []string{"readByteBlock"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return nil, Error{ReadError + ": " + err.Error(), D.filename, []string{"readByteBlock"}, true}
	}
	if check != blocksize {
		return nil, Error{SecurityCheckFailed, D.filename, []string{"readByteBlock"}, true}
	}
	return block, nil
}

// Len returns the number of atoms per frame in the DCDObj.
// DCDObj must be initialized. 0 means an uninitialized object.
func (D *DCDObj) Len() int {
	return int(D.natoms)
}

// NFrames returns the number of frames declared in the header of the file.
func (D *DCDObj) NFrames() int {
	return int(D.nframes)
}

// Close closes the file, and marks the object as unreadable.
func (D *DCDObj) Close() {
	if D.closer != nil {
		D.closer.Close()
		D.closer = nil
	}
	if D.fhandle != nil {
		D.fhandle.Close()
		D.fhandle = nil
	}
	D.readable = false
}

//Errors

// errDecorate is a helper function that asserts that the error
// implements cg.Error and decorates the error with the caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2, ok := err.(cg.Error)
	if !ok {
		return err
	}
	err2.Decorate(caller)
	return err2
}

// Error is the general structure for DCD trajectory errors. It fullfills  cg.Error and cg.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("dcd file %s error: %s", err.filename, err.message)
}

// Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "dcd") associated to the error
func (err Error) Format() string { return "dcd" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIni           = "Traj object uninitialized to read or write"
	ReadError           = "Error reading frame"
	UnableToOpen        = "Unable to open file"
	SecurityCheckFailed = "Failed Security Check"
	WrongFormat         = "Wrong format in the DCD file or frame"
	NotEnoughSpace      = "Not enough space in passed blocks"
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

func (E lastFrameError) Format() string { return "dcd" }

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
