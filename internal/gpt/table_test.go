package gpt

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-sdboot/internal/types"
)

func TestParseHeaderFromBuiltImage(t *testing.T) {
	disk := MustParseGUID("5E0B3F6A-8F8E-4C1B-9D4B-1C2A3B4C5D6E")
	image := buildImage(t, NewImageBuilder(4096).WithDiskGUID(disk))

	block := image[types.GPTHeaderLBA*types.BlockSize : (types.GPTHeaderLBA+1)*types.BlockSize]
	h, err := ParseHeader(block)
	require.NoError(t, err)

	assert.True(t, h.HasSignature())
	assert.Equal(t, uint32(0x00010000), h.Revision)
	assert.Equal(t, uint32(92), h.HeaderSize)
	assert.Equal(t, uint64(1), h.MyLBA)
	assert.Equal(t, uint64(4095), h.AlternateLBA)
	assert.Equal(t, uint64(34), h.FirstUsableLBA)
	assert.Equal(t, uint64(4062), h.LastUsableLBA)
	assert.Equal(t, disk, h.DiskGUID)
	assert.Equal(t, uint64(2), h.EntriesLBA)
	assert.Equal(t, uint32(128), h.NumEntries)
	assert.Equal(t, uint32(128), h.EntrySize)
	assert.Equal(t, uint64(32), h.TableBlocks())
	assert.True(t, VerifyHeaderChecksum(block))

	block[types.GPTHeaderEntriesLBAOffset] ^= 0xff
	assert.False(t, VerifyHeaderChecksum(block))
}

func TestParseHeaderShortBlock(t *testing.T) {
	_, err := ParseHeader(make([]byte, 40))
	assert.Error(t, err)
}

func TestParseHeaderIsACopy(t *testing.T) {
	image := buildImage(t, NewImageBuilder(128))
	block := make([]byte, types.BlockSize)
	copy(block, image[types.BlockSize:])

	h, err := ParseHeader(block)
	require.NoError(t, err)

	for i := range block {
		block[i] = 0xAA
	}
	assert.Equal(t, uint64(2), h.EntriesLBA)
	assert.Equal(t, uint32(128), h.NumEntries)
	assert.Equal(t, uint32(128), h.EntrySize)
}

func TestReadTable(t *testing.T) {
	image := buildImage(t, NewImageBuilder(4096).
		AddPartition(PartitionSpec{Type: EFISystemPartition, FirstLBA: 2048, LastLBA: 2303, Name: "boot"}).
		AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 2304, LastLBA: 4000, Name: "rootfs"}).
		SetPartition(10, PartitionSpec{Type: EFISystemPartition, FirstLBA: 40, LastLBA: 41, Name: "spare"}))
	card := newRecordingCard(image)

	table, err := ReadTable(card)
	require.NoError(t, err)

	assert.True(t, table.HeaderCRCOK)
	assert.True(t, table.EntriesCRCOK)
	require.Len(t, table.Entries, 3)

	assert.Equal(t, 0, table.Entries[0].Index)
	assert.Equal(t, "boot", table.Entries[0].Name)
	assert.Equal(t, EFISystemPartition, table.Entries[0].TypeGUID)
	assert.Equal(t, uint64(256*types.BlockSize), table.Entries[0].Range().Bytes())

	assert.Equal(t, 1, table.Entries[1].Index)
	assert.Equal(t, "rootfs", table.Entries[1].Name)

	assert.Equal(t, 10, table.Entries[2].Index)

	selected := table.Select(EFISystemPartition)
	require.NotNil(t, selected)
	assert.Equal(t, 0, selected.Index)
	assert.Nil(t, table.Select(linuxSwap))
}

func TestReadTableWithoutSignature(t *testing.T) {
	card := newRecordingCard(make([]byte, 64*types.BlockSize))
	_, err := ReadTable(card)
	assert.Error(t, err)
}

func TestEntryNameRoundTrip(t *testing.T) {
	raw := encodeEntry(Entry{TypeGUID: linuxFS, FirstLBA: 1, LastLBA: 2, Name: "données"}, types.GPTEntrySize)
	e, err := ParseEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, "données", e.Name)
	assert.False(t, e.IsEmpty())

	_, err = ParseEntry(raw[:40])
	assert.Error(t, err)
}

func TestPartitionRange(t *testing.T) {
	r := PartitionRange{FirstLBA: 100, LastLBA: 109}
	assert.True(t, r.IsValid())
	assert.Equal(t, uint64(10), r.SectorCount())
	assert.Equal(t, uint64(5120), r.Bytes())

	single := PartitionRange{FirstLBA: 7, LastLBA: 7}
	assert.Equal(t, uint64(1), single.SectorCount())

	assert.False(t, InvalidRange().IsValid())
	assert.Zero(t, InvalidRange().SectorCount())
}

func TestImageBuilderRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name    string
		builder *ImageBuilder
	}{
		{name: "too small for the table", builder: NewImageBuilder(16)},
		{name: "no room for the backup table", builder: NewImageBuilder(66)},
		{name: "partition past the end", builder: NewImageBuilder(128).
			AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 40, LastLBA: 128})},
		{name: "partition over the backup table", builder: NewImageBuilder(128).
			AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 40, LastLBA: 95})},
		{name: "partition over the primary table", builder: NewImageBuilder(128).
			AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 20, LastLBA: 40})},
		{name: "entry array over the header", builder: NewImageBuilder(128).WithTable(1, 128, 128)},
		{name: "entry array over the MBR", builder: NewImageBuilder(128).WithTable(0, 4, 128)},
		{name: "data larger than the partition", builder: NewImageBuilder(128).
			AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 40, LastLBA: 40, Data: make([]byte, 513)})},
		{name: "slot outside the array", builder: NewImageBuilder(128).
			SetPartition(128, PartitionSpec{Type: linuxFS, FirstLBA: 40, LastLBA: 41})},
		{name: "entry size too small", builder: NewImageBuilder(128).WithTable(2, 4, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			assert.Error(t, err)
		})
	}
}

func TestImageBuilderWritesPartitionData(t *testing.T) {
	data := []byte("payload bytes")
	image := buildImage(t, NewImageBuilder(128).
		AddPartition(PartitionSpec{Type: linuxFS, FirstLBA: 40, LastLBA: 41, Data: data}))

	assert.Equal(t, data, image[40*types.BlockSize:40*types.BlockSize+len(data)])
	assert.Equal(t, byte(0x55), image[510])
	assert.Equal(t, byte(0xAA), image[511])
	assert.Equal(t, byte(0xEE), image[446+4])
}

func TestImageBuilderWritesBackupTable(t *testing.T) {
	const blocks = 4096
	image := buildImage(t, NewImageBuilder(blocks).
		AddPartition(PartitionSpec{Type: EFISystemPartition, FirstLBA: 2048, LastLBA: 4062, Name: "boot"}))

	primaryBlock := image[types.GPTHeaderLBA*types.BlockSize : (types.GPTHeaderLBA+1)*types.BlockSize]
	primary, err := ParseHeader(primaryBlock)
	require.NoError(t, err)

	backupBlock := image[(blocks-1)*types.BlockSize:]
	require.Len(t, backupBlock, types.BlockSize)
	backup, err := ParseHeader(backupBlock)
	require.NoError(t, err)

	assert.True(t, backup.HasSignature())
	assert.True(t, VerifyHeaderChecksum(backupBlock))
	assert.Equal(t, uint64(blocks-1), primary.AlternateLBA)
	assert.Equal(t, uint64(blocks-1), backup.MyLBA)
	assert.Equal(t, uint64(types.GPTHeaderLBA), backup.AlternateLBA)
	assert.Equal(t, uint64(blocks-33), backup.EntriesLBA)
	assert.Equal(t, primary.LastUsableLBA+1, backup.EntriesLBA)
	assert.Equal(t, primary.FirstUsableLBA, backup.FirstUsableLBA)
	assert.Equal(t, primary.LastUsableLBA, backup.LastUsableLBA)
	assert.Equal(t, primary.DiskGUID, backup.DiskGUID)
	assert.Equal(t, primary.EntriesCRC32, backup.EntriesCRC32)

	tableBytes := int(primary.NumEntries * primary.EntrySize)
	primaryArray := image[primary.EntriesLBA*types.BlockSize:][:tableBytes]
	backupArray := image[backup.EntriesLBA*types.BlockSize:][:tableBytes]
	assert.Equal(t, primaryArray, backupArray)
}

func TestLocateAgreesWithLocator(t *testing.T) {
	tests := []struct {
		name       string
		numEntries uint32
		entrySize  uint32
		slot       int
		wantFound  bool
	}{
		{name: "standard geometry", numEntries: 128, entrySize: 128, slot: 77, wantFound: true},
		{name: "one entry per block", numEntries: 8, entrySize: 512, slot: 5, wantFound: true},
		{name: "uneven size in first block", numEntries: 16, entrySize: 96, slot: 2, wantFound: true},
		// Slot 5 straddles the first block boundary; the per-block walk
		// reads the bytes at offset 512 instead and never sees it.
		{name: "uneven size across a block", numEntries: 16, entrySize: 96, slot: 5, wantFound: false},
		{name: "uneven size in last slot", numEntries: 16, entrySize: 96, slot: 15, wantFound: false},
		{name: "large uneven size", numEntries: 6, entrySize: 200, slot: 3, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := buildImage(t, NewImageBuilder(4096).
				WithTable(2, tt.numEntries, tt.entrySize).
				SetPartition(tt.slot, PartitionSpec{Type: EFISystemPartition, FirstLBA: 2048, LastLBA: 2057}))
			card := newRecordingCard(image)

			table, err := ReadTable(card)
			require.NoError(t, err)
			require.NotEmpty(t, table.Entries)

			want, err := NewLocator(card, nil).FindPartition(make([]byte, types.BlockSize), 2, tt.numEntries, tt.entrySize, EFISystemPartition)
			require.NoError(t, err)

			got, entry := table.Locate(EFISystemPartition)
			assert.Equal(t, want, got)
			assert.Equal(t, tt.wantFound, got.IsValid())

			selected := table.Select(EFISystemPartition)
			if !tt.wantFound {
				assert.Nil(t, selected)
				assert.Nil(t, entry)
				return
			}
			require.NotNil(t, selected)
			assert.Equal(t, tt.slot, selected.Index)
			assert.Equal(t, want, selected.Range())
		})
	}
}

func TestSelectOversizedEntries(t *testing.T) {
	image := buildImage(t, NewImageBuilder(4096).
		AddPartition(PartitionSpec{Type: EFISystemPartition, FirstLBA: 2048, LastLBA: 2057}))

	// Rewrite the header for 1024-byte entries, which the boot stage cannot scan.
	header := image[types.GPTHeaderLBA*types.BlockSize : (types.GPTHeaderLBA+1)*types.BlockSize]
	binary.LittleEndian.PutUint32(header[types.GPTHeaderEntrySizeOffset:], 1024)
	binary.LittleEndian.PutUint32(header[types.GPTHeaderCRC32Offset:], headerChecksum(header[:gptHeaderSize]))
	card := newRecordingCard(image)

	table, err := ReadTable(card)
	require.NoError(t, err)
	require.NotEmpty(t, table.Entries)
	assert.Equal(t, EFISystemPartition, table.Entries[0].TypeGUID)

	got, err := NewLocator(card, nil).FindPartition(make([]byte, types.BlockSize), 2, 128, 1024, EFISystemPartition)
	require.NoError(t, err)
	assert.False(t, got.IsValid())

	r, entry := table.Locate(EFISystemPartition)
	assert.False(t, r.IsValid())
	assert.Nil(t, entry)
	assert.Nil(t, table.Select(EFISystemPartition))
}

func TestSelectInvertedFirstMatch(t *testing.T) {
	image := buildImage(t, NewImageBuilder(1024).
		SetPartition(0, PartitionSpec{Type: EFISystemPartition, FirstLBA: 200, LastLBA: 100}).
		SetPartition(1, PartitionSpec{Type: EFISystemPartition, FirstLBA: 300, LastLBA: 309}))

	table, err := ReadTable(newRecordingCard(image))
	require.NoError(t, err)
	assert.Nil(t, table.Select(EFISystemPartition))
}
