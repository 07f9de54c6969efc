package util

import (
	"fmt"
	"strings"
)

func makeCRC16Table(poly uint16) [256]uint16 {
	var tab [256]uint16
	for i := 0; i < 256; i++ {
		var crc uint16 = uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		tab[i] = crc
	}
	return tab
}

var crc16Tab = makeCRC16Table(0x1021)

func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		idx := byte((crc >> 8) ^ uint16(b)) // 高字节异或数据
		crc = (crc << 8) ^ crc16Tab[idx]
	}
	return crc
}

// IncidentRef 由本地报警ID派生一个短事件编号
// 便于用户向接警员口述，格式如 "SOS-03F2"
func IncidentRef(localID string) string {
	crc := crc16CCITT([]byte(strings.TrimSpace(localID)))
	return fmt.Sprintf("SOS-%04X", crc)
}
