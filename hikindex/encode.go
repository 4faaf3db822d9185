package hikindex

import (
	"encoding/binary"
)

// Bytes encodes the header into its fixed-size form.
func (h *Header) Bytes() []byte {
	buffer := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(buffer[0:8], h.ModifyTimes)
	binary.LittleEndian.PutUint32(buffer[8:12], h.Version)
	binary.LittleEndian.PutUint32(buffer[12:16], h.AVFiles)
	binary.LittleEndian.PutUint32(buffer[16:20], h.NextFileRecNo)
	binary.LittleEndian.PutUint32(buffer[20:24], h.LastFileRecNo)
	copy(buffer[curFileRecOffset:reservedOffset], h.CurFileRec)
	copy(buffer[reservedOffset:checksumOffset], h.Reserved)
	binary.LittleEndian.PutUint32(buffer[checksumOffset:HeaderSize], h.Checksum)
	return buffer
}

// Bytes encodes the record into its 80-byte slot form.
func (r *SegmentRecord) Bytes() []byte {
	buffer := make([]byte, SegmentRecordSize)
	buffer[0] = r.Type
	buffer[1] = r.Status
	binary.LittleEndian.PutUint16(buffer[2:4], r.Reserved16)
	binary.LittleEndian.PutUint32(buffer[4:8], r.Resolution)
	binary.LittleEndian.PutUint64(buffer[8:16], r.StartTime)
	binary.LittleEndian.PutUint64(buffer[16:24], r.EndTime)
	binary.LittleEndian.PutUint64(buffer[24:32], r.FirstKeyFrameAbsTime)
	binary.LittleEndian.PutUint32(buffer[32:36], r.FirstKeyFrameStdTime)
	binary.LittleEndian.PutUint32(buffer[36:40], r.LastFrameStdTime)
	binary.LittleEndian.PutUint32(buffer[40:44], r.StartOffset)
	binary.LittleEndian.PutUint32(buffer[44:48], r.EndOffset)
	binary.LittleEndian.PutUint32(buffer[48:52], r.Reserved32)
	binary.LittleEndian.PutUint32(buffer[52:56], r.InfoNum)
	binary.LittleEndian.PutUint64(buffer[56:64], r.InfoTypes)
	binary.LittleEndian.PutUint32(buffer[64:68], r.InfoStartTime)
	binary.LittleEndian.PutUint32(buffer[68:72], r.InfoEndTime)
	binary.LittleEndian.PutUint32(buffer[72:76], r.InfoStartOffset)
	binary.LittleEndian.PutUint32(buffer[76:80], r.InfoEndOffset)
	return buffer
}

// Encode builds a complete index.
//
// `files[i][j]` is slot j of source file i; missing slots (and missing files,
// up to `header.AVFiles`) are written as unused.  The per-file table is
// zero-filled.
func Encode(header *Header, files [][]SegmentRecord) []byte {
	fileCount := int(header.AVFiles)
	buffer := header.Bytes()
	buffer = append(buffer, make([]byte, fileCount*FileRecordSize)...)
	for fileIndex := 0; fileIndex < fileCount; fileIndex++ {
		for slotIndex := 0; slotIndex < SlotsPerFile; slotIndex++ {
			record := SegmentRecord{}
			if fileIndex < len(files) && slotIndex < len(files[fileIndex]) {
				record = files[fileIndex][slotIndex]
			}
			buffer = append(buffer, record.Bytes()...)
		}
	}
	return buffer
}
