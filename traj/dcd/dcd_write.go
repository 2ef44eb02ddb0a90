/*
 * dcd_write.go, part of gocg.
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
	"encoding/binary"
	"io"
	"os"

	v3 "github.com/rmera/gocg/v3"
)

// WriterOptions are the optional settings of a DCD writer.
type WriterOptions struct {
	TimeStep float32 //time between frames, in ps. 1 if not given.
	UnitCell bool    //write the box of each frame in a CHARMM unit cell block.
}

// DCDWObj is a container for an Charmm/NAMD binary trajectory file
// opened for writing. It takes coordinates in nm.
type DCDWObj struct {
	natoms    int32
	writable  bool //Is it ready to be written on
	filename  string
	frames    int32
	unitcell  bool
	delta     float32
	dcd       *os.File //The DCD file
	dcdFields [][]float32
	endian    binary.ByteOrder
}

// NewWriter initializes a DCD trajectory for writing.
func NewWriter(filename string, natoms int, opts ...WriterOptions) (*DCDWObj, error) {
	traj := new(DCDWObj)
	traj.natoms = int32(natoms)
	traj.delta = 1
	if len(opts) > 0 {
		traj.unitcell = opts[0].UnitCell
		if opts[0].TimeStep > 0 {
			traj.delta = opts[0].TimeStep
		}
	}
	if err := traj.initWrite(filename); err != nil {
		return nil, errDecorate(err, "NewWriter")
	}
	return traj, nil
}

// Close closes the file. The object can't be used after this call.
func (D *DCDWObj) Close() {
	if !D.writable {
		return
	}
	D.dcd.Close()
	D.writable = false
}

// Len returns the number of atoms per frame.
func (D *DCDWObj) Len() int {
	return int(D.natoms)
}

// initWrite creates the file and writes the CHARMM header.
func (D *DCDWObj) initWrite(name string) error {
	D.filename = name
	if D.natoms <= 0 {
		return Error{"Trajectory not initialized correctly, the number of atoms is set to zero!", D.filename, []string{"initWrite"}, true}
	}
	D.endian = binary.LittleEndian
	var err error
	D.dcd, err = os.Create(name)
	if err != nil {
		return Error{UnableToOpen + ": " + err.Error(), D.filename, []string{"os.Create", "initWrite"}, true}
	}
	icntrl := make([]int32, 20)
	icntrl[0] = 0 //frames, updated after every write
	icntrl[1] = 0 //initial step
	icntrl[2] = 1 //step interval (nsavc)
	if D.unitcell {
		icntrl[10] = 1
	}
	icntrl[19] = 24 //charmm version, let's say, 24
	title := make([]byte, 2*mAXTITLE)
	copy(title, "REMARKS written by goCG")
	for j := len("REMARKS written by goCG"); j < len(title); j++ {
		title[j] = ' '
	}
	//the delta time is a float32 among the int32s.
	header := []any{
		int32(84), []byte("CORD"), icntrl[:9], D.delta, icntrl[10:], int32(84),
		int32(4 + len(title)), int32(2), title, int32(4 + len(title)),
		int32(4), D.natoms, int32(4),
	}
	for _, v := range header {
		if err := binary.Write(D.dcd, D.endian, v); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "initWrite"}, true}
		}
	}
	D.writable = true
	return nil
}

// WNext writes the next frame to the trajectory. If the writer was created with
// the UnitCell option, the diagonal of the first element of box (9 numbers, nm)
// is written as the unit cell.
func (D *DCDWObj) WNext(towrite *v3.Matrix, box ...[]float64) error {
	if !D.writable {
		return Error{TrajUnIni, D.filename, []string{"WNext"}, true}
	}
	if towrite == nil {
		return Error{"got nil coordinates", D.filename, []string{"WNext"}, true}
	}
	if int32(towrite.NVecs()) != D.natoms {
		return Error{"Coordinates don't match the trajectory size", D.filename, []string{"WNext"}, true}
	}
	if D.dcdFields == nil {
		D.dcdFields = make([][]float32, 3)
		D.dcdFields[0] = make([]float32, int(D.natoms))
		D.dcdFields[1] = make([]float32, int(D.natoms))
		D.dcdFields[2] = make([]float32, int(D.natoms))
	}
	//This is easier to write to the dcd
	for i := 0; i < int(D.natoms); i++ {
		D.dcdFields[0][i] = float32(towrite.At(i, 0) / ang2nm)
		D.dcdFields[1][i] = float32(towrite.At(i, 1) / ang2nm)
		D.dcdFields[2][i] = float32(towrite.At(i, 2) / ang2nm)
	}
	if D.unitcell {
		var cell [6]float64
		cell[1], cell[3], cell[4] = 90, 90, 90
		if len(box) > 0 && len(box[0]) >= 9 {
			cell[0] = box[0][0] / ang2nm
			cell[2] = box[0][4] / ang2nm
			cell[5] = box[0][8] / ang2nm
		}
		if err := D.writeBlock(cell[:], unitCellBlock); err != nil {
			return errDecorate(err, "WNext")
		}
	}
	if err := D.wnextRaw(D.dcdFields); err != nil {
		return errDecorate(err, "WNext")
	}
	D.frames++
	return D.updateFrames()
}

func (D *DCDWObj) wnextRaw(blocks [][]float32) error {
	if len(blocks[0]) != int(D.natoms) || len(blocks[1]) != int(D.natoms) || len(blocks[2]) != int(D.natoms) {
		return Error{NotEnoughSpace, D.filename, []string{"wnextRaw"}, true}
	}
	var blocksize int32 = int32(len(blocks[0])) * 4 //the "4" is because the size is required in bytes, apparently.
	for _, b := range blocks {
		if err := D.writeBlock(b, blocksize); err != nil {
			return errDecorate(err, "wnextRaw")
		}
	}
	return nil
}

// Writes a block to the file, preceded and followed by its size
func (D *DCDWObj) writeBlock(block any, blocksize int32) error {
	for _, v := range []any{blocksize, block, blocksize} {
		if err := binary.Write(D.dcd, D.endian, v); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "writeBlock"}, true}
		}
	}
	return nil
}

// DCD is silly enough to require the number of frames at the begining.
func (D *DCDWObj) updateFrames() error {
	currentoffset, err := D.dcd.Seek(0, io.SeekCurrent) //we'll need it to go back
	if err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrame"}, true}
	}
	//the frame count is right after the 84 and the magic number.
	if _, err = D.dcd.Seek(8, io.SeekStart); err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrame"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, D.frames); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Write", "updateFrame"}, true}
	}
	//we go back to the part of the file we were writing
	if _, err = D.dcd.Seek(currentoffset, io.SeekStart); err != nil {
		return Error{err.Error(), D.filename, []string{"dcd.Seek", "updateFrame"}, true}
	}
	return nil
}
