package brainfuck

import "encoding/binary"

// Shared PE/COFF layout helpers. The image carries three sections: .text
// (code), .idata (a minimal import directory referencing kernel32), and
// .bss (the tape, IMAGE_SCN_MEM_READ|WRITE|UNINITIALIZED_DATA, zero file
// footprint). Everything is built in two passes: codegen first emits calls
// through placeholder IAT addresses, then once the section layout is known
// the import table's real RVAs are computed and those call sites are
// patched in place — the same back-patch discipline the ELF backends use
// for branch targets.
const (
	peSectionAlign = 0x1000
	peFileAlign    = 0x200
	peImageBase32  = 0x00400000
	peImageBase64  = 0x0000000140000000
)

func alignUp(v, a uint32) uint32 {
	if v%a == 0 {
		return v
	}
	return v + (a - v%a)
}

var kernel32Imports = []string{"GetStdHandle", "ReadFile", "WriteFile", "ExitProcess"}

// importTable builds the .idata section contents for a single DLL. ptrSize
// is 4 for x86, 8 for x86-64. It returns the section bytes and the
// byte-offset (within the section) of each imported function's IAT slot.
func importTable(names []string, ptrSize uint32) (data []byte, iatOffsets map[string]uint32) {
	n := uint32(len(names))
	dirTableSize := 2 * 20 // one entry + null terminator
	thunkTableSize := (n + 1) * ptrSize

	dirOff := uint32(0)
	iltOff := uint32(dirTableSize)
	iatOff := iltOff + thunkTableSize
	hintOff := iatOff + thunkTableSize

	// Lay out the hint/name table.
	hintOffsets := make([]uint32, n)
	cur := hintOff
	for i, name := range names {
		hintOffsets[i] = cur
		cur += 2 + uint32(len(name)) + 1
		if cur%2 != 0 {
			cur++
		}
	}
	dllNameOff := cur
	dllName := "KERNEL32.DLL\x00"
	cur += uint32(len(dllName))
	total := cur

	data = make([]byte, total)

	putThunks := func(base uint32) {
		for i := range names {
			off := base + uint32(i)*ptrSize
			if ptrSize == 4 {
				binary.LittleEndian.PutUint32(data[off:], hintOffsets[i])
			} else {
				binary.LittleEndian.PutUint64(data[off:], uint64(hintOffsets[i]))
			}
		}
	}
	putThunks(iltOff)
	putThunks(iatOff)

	for i, name := range names {
		off := hintOffsets[i]
		binary.LittleEndian.PutUint16(data[off:], 0) // hint
		copy(data[off+2:], name)
		data[off+2+uint32(len(name))] = 0
	}
	copy(data[dllNameOff:], dllName)

	// Directory table: one real entry then an all-zero terminator.
	binary.LittleEndian.PutUint32(data[dirOff:], iltOff)   // OriginalFirstThunk
	binary.LittleEndian.PutUint32(data[dirOff+12:], dllNameOff) // Name RVA (patched to absolute RVA by caller)
	binary.LittleEndian.PutUint32(data[dirOff+16:], iatOff) // FirstThunk

	iatOffsets = make(map[string]uint32, n)
	for i, name := range names {
		iatOffsets[name] = iatOff + uint32(i)*ptrSize
	}
	return data, iatOffsets
}

// rebaseImportTable adds sectionRVA to every RVA field the import table
// stores relative to its own start, since importTable above builds offsets
// relative to section-start and the directory/thunk entries must hold
// image RVAs once the section's real address is known.
func rebaseImportTable(data []byte, ptrSize uint32, sectionRVA uint32, nameCount int) {
	const dirOff = 0
	ilt := binary.LittleEndian.Uint32(data[dirOff:])
	name := binary.LittleEndian.Uint32(data[dirOff+12:])
	iat := binary.LittleEndian.Uint32(data[dirOff+16:])
	binary.LittleEndian.PutUint32(data[dirOff:], ilt+sectionRVA)
	binary.LittleEndian.PutUint32(data[dirOff+12:], name+sectionRVA)
	binary.LittleEndian.PutUint32(data[dirOff+16:], iat+sectionRVA)

	rebaseThunks := func(base uint32) {
		for i := 0; i < nameCount; i++ {
			off := base + uint32(i)*ptrSize
			if ptrSize == 4 {
				v := binary.LittleEndian.Uint32(data[off:])
				binary.LittleEndian.PutUint32(data[off:], v+sectionRVA)
			} else {
				v := binary.LittleEndian.Uint64(data[off:])
				binary.LittleEndian.PutUint64(data[off:], v+uint64(sectionRVA))
			}
		}
	}
	rebaseThunks(ilt)
	rebaseThunks(iat)
}

type peSection struct {
	name             string
	rva              uint32
	virtualSize      uint32
	rawOffset        uint32
	rawSize          uint32
	characteristics  uint32
}

const (
	imageScnCntCode   = 0x00000020
	imageScnCntData   = 0x00000040
	imageScnUninit    = 0x00000080
	imageScnMemExec   = 0x20000000
	imageScnMemRead   = 0x40000000
	imageScnMemWrite  = 0x80000000
)

// buildPE assembles the final image from pre-sized section contents.
// textCode, idata, and bssSize describe the three sections; is64 selects
// COFF machine/optional-header format. entryOffsetInText is the byte
// offset of the entry point within .text (normally 0).
func buildPE(textCode, idata []byte, bssSize uint32, is64 bool, machine uint16, entryOffsetInText uint32) []byte {
	dosHeaderSize := uint32(64)
	dosStub := []byte{
		0x0E, 0x1F, 0xBA, 0x0E, 0x00, 0xB4, 0x09, 0xCD,
		0x21, 0xB8, 0x01, 0x4C, 0xCD, 0x21, // tiny "this program cannot be run in DOS mode"-less stub
	}
	peHeaderOffset := dosHeaderSize + uint32(len(dosStub))
	peHeaderOffset = alignUp(peHeaderOffset, 8)

	coffHeaderSize := uint32(20)
	var optHeaderSize uint32
	if is64 {
		optHeaderSize = 112
	} else {
		optHeaderSize = 96
	}
	numDataDirs := uint32(16)
	optHeaderSize += numDataDirs * 8

	numSections := uint32(3)
	sectionHeaderSize := uint32(40)
	headersEnd := peHeaderOffset + 4 + coffHeaderSize + optHeaderSize + numSections*sectionHeaderSize
	headersRawSize := alignUp(headersEnd, peFileAlign)

	textRVA := peSectionAlign
	textRaw := alignUp(uint32(len(textCode)), peFileAlign)

	idataRVA := alignUp(uint32(textRVA)+uint32(len(textCode)), peSectionAlign)
	idataRaw := alignUp(uint32(len(idata)), peFileAlign)

	bssRVA := alignUp(idataRVA+uint32(len(idata)), peSectionAlign)

	sections := []peSection{
		{".text", uint32(textRVA), uint32(len(textCode)), headersRawSize, textRaw, imageScnCntCode | imageScnMemExec | imageScnMemRead},
		{".idata", idataRVA, uint32(len(idata)), headersRawSize + textRaw, idataRaw, imageScnCntData | imageScnMemRead | imageScnMemWrite},
		{".bss", bssRVA, bssSize, 0, 0, imageScnCntData | imageScnUninit | imageScnMemRead | imageScnMemWrite},
	}

	imageBase := uint64(peImageBase32)
	if is64 {
		imageBase = peImageBase64
	}
	sizeOfImage := alignUp(bssRVA+bssSize, peSectionAlign)

	var b CodeBuffer
	b.Write(make([]byte, dosHeaderSize))
	binary.LittleEndian.PutUint16(b.Bytes()[0:], 0x5A4D) // "MZ"
	binary.LittleEndian.PutUint32(b.Bytes()[60:], peHeaderOffset)
	b.Write(dosStub)
	for uint32(b.Len()) < peHeaderOffset {
		b.WriteByte(0)
	}

	b.Code("PE\x00\x00")
	if is64 {
		b.U16(0x8664)
	} else {
		b.U16(0x014C)
	}
	b.U16(uint16(numSections))
	b.U32(0) // TimeDateStamp
	b.U32(0) // PointerToSymbolTable
	b.U32(0) // NumberOfSymbols
	b.U16(uint16(optHeaderSize))
	characteristics := uint16(0x0102) // EXECUTABLE_IMAGE | 32BIT_MACHINE (bit ignored on PE32+)
	b.U16(characteristics)

	// Optional header
	if is64 {
		b.U16(0x020B) // PE32+
	} else {
		b.U16(0x010B) // PE32
	}
	b.WriteByte(1) // MajorLinkerVersion
	b.WriteByte(0)
	b.U32(uint32(len(textCode))) // SizeOfCode
	b.U32(uint32(len(idata)))    // SizeOfInitializedData
	b.U32(bssSize)               // SizeOfUninitializedData
	b.U32(uint32(textRVA) + entryOffsetInText)
	b.U32(uint32(textRVA)) // BaseOfCode
	if !is64 {
		b.U32(idataRVA) // BaseOfData (PE32 only)
		b.U32(uint32(imageBase))
	} else {
		b.U64(imageBase)
	}
	b.U32(peSectionAlign) // SectionAlignment
	b.U32(peFileAlign)    // FileAlignment
	b.U16(6)              // MajorOSVersion
	b.U16(0)
	b.U16(0) // MajorImageVersion
	b.U16(0)
	b.U16(6) // MajorSubsystemVersion
	b.U16(0)
	b.U32(0) // Win32VersionValue
	b.U32(sizeOfImage)
	b.U32(headersRawSize) // SizeOfHeaders
	b.U32(0)               // CheckSum
	b.U16(3)                // IMAGE_SUBSYSTEM_WINDOWS_CUI
	b.U16(0)                // DllCharacteristics
	if is64 {
		b.U64(0x100000) // SizeOfStackReserve
		b.U64(0x1000)
		b.U64(0x100000) // SizeOfHeapReserve
		b.U64(0x1000)
	} else {
		b.U32(0x100000)
		b.U32(0x1000)
		b.U32(0x100000)
		b.U32(0x1000)
	}
	b.U32(0) // LoaderFlags
	b.U32(16) // NumberOfRvaAndSizes

	// Data directories: only IMPORT_TABLE (index 1) is populated.
	for i := 0; i < 16; i++ {
		if i == 1 {
			b.U32(idataRVA)
			b.U32(uint32(len(idata)))
		} else {
			b.U32(0)
			b.U32(0)
		}
	}

	// Section headers
	for _, s := range sections {
		nameBytes := make([]byte, 8)
		copy(nameBytes, s.name)
		b.Write(nameBytes)
		b.U32(s.virtualSize)
		b.U32(s.rva)
		b.U32(s.rawSize)
		b.U32(s.rawOffset)
		b.U32(0) // PointerToRelocations
		b.U32(0) // PointerToLinenumbers
		b.U16(0)
		b.U16(0)
		b.U32(s.characteristics)
	}

	for uint32(b.Len()) < headersRawSize {
		b.WriteByte(0)
	}

	b.Write(textCode)
	for uint32(b.Len()) < headersRawSize+textRaw {
		b.WriteByte(0)
	}
	b.Write(idata)
	for uint32(b.Len()) < headersRawSize+textRaw+idataRaw {
		b.WriteByte(0)
	}

	return b.Bytes()
}
