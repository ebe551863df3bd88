package content

import (
	"fmt"
	"strings"
)

// wordsPerMinute は読了時間推定に使用する1分あたりの語数。
const wordsPerMinute = 200

// ReadingTime はLexicalツリーから読了時間の表示文字列を推定する。
// プレーンテキストの語数（空白区切り、空トークンは破棄）を200語/分で割り、
// 分単位に切り上げる。本文が空の場合も最低1分として扱う。
func ReadingTime(raw []byte) string {
	return ReadingTimeFromText(ToPlainText(raw))
}

// ReadingTimeFromText はプレーンテキストから読了時間の表示文字列を推定する。
// Lexicalツリーを持たないCMS変種（HTML本文）の読了時間にも同じ計算式を使う。
func ReadingTimeFromText(text string) string {
	words := len(strings.Fields(text))

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}

	return fmt.Sprintf("%d min read", minutes)
}
