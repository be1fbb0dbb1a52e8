package codec_test

import (
	"fmt"

	"github.com/bft-labs/faderlink/internal/codec"
)

func ExampleEncode() {
	for _, v := range []int{100, -1, -128} {
		g, _ := codec.Encode(v)
		fmt.Println(v, g)
	}
	// Output:
	// 100 [0 0 100]
	// -1 [127 127 127]
	// -128 [127 127 0]
}

func ExampleDecode() {
	v, _ := codec.Decode([]byte{127, 127, 100})
	fmt.Println(v)
	// Output: -28
}
