package canvas

// 服务端以每格 4 bit 的方式存储画布: 一个字节保存两个格子, 偶数下标在高半字节。
// 这与 Redis BITFIELD u4 #offset 的位序一致。

// PackNibbles 把每格一字节的颜色索引打包为 4 bit 位图。超出 4 bit 的值会被截断。
func PackNibbles(colors []byte) []byte {
	out := make([]byte, (len(colors)+1)/2)
	for i, c := range colors {
		c &= 0x0f
		if i%2 == 0 {
			out[i/2] |= c << 4
		} else {
			out[i/2] |= c
		}
	}
	return out
}

// UnpackNibbles 把 4 bit 位图展开为 n 个每格一字节的颜色索引。
// 位图比 n 短时缺失的格子视为 0 (背景色), 与 Redis 对未写入位的读取语义一致。
func UnpackNibbles(packed []byte, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := i / 2
		if b >= len(packed) {
			break
		}
		if i%2 == 0 {
			out[i] = packed[b] >> 4
		} else {
			out[i] = packed[b] & 0x0f
		}
	}
	return out
}
