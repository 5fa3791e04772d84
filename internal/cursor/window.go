package cursor

// DefaultStandardWindow は候補投稿を一度に取得する標準件数。
const DefaultStandardWindow = 200

// Window は正規化後の候補取得範囲を表す。
// FetchOffset/Limit は候補取得に、SliceOffset はランキング後の切り出しに使う。
// 連続する取得範囲は互いに重ならない。
type Window struct {
	FetchOffset int
	Limit       int
	SliceOffset int
}

// Renormalize は生のオフセットを標準ウィンドウ単位に正規化する。
//
// 取得範囲は [0, standard), [standard, 3×standard), [3×standard, 5×standard) ... と重ならずに並ぶ。
// rawOffset が standard 未満の場合は先頭から standard 件を取得し、そのまま切り出す。
// standard にちょうど達した時点で取得件数が 2×standard に広がり、切り出し位置は
// 取得開始位置からの余りになる。取得位置は常に standard の倍数になる。
func Renormalize(rawOffset, standard int) Window {
	if standard <= 0 {
		standard = DefaultStandardWindow
	}
	if rawOffset < 0 {
		rawOffset = 0
	}
	if rawOffset < standard {
		return Window{FetchOffset: 0, Limit: standard, SliceOffset: rawOffset}
	}
	span := standard * 2
	start := standard + (rawOffset-standard)/span*span
	return Window{
		FetchOffset: start,
		Limit:       span,
		SliceOffset: rawOffset - start,
	}
}

// Next は直後に続く取得範囲の先頭を指す生オフセットを返す。
func (w Window) Next() int {
	return w.FetchOffset + w.Limit
}

// RawOffset はページ番号（1始まり）とページサイズから生のオフセットを返す。
func RawOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
