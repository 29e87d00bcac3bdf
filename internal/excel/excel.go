// Package excel はアップロードされたExcelから参加者データを抽出します。
package excel

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row は参加者1名分の入力データを表します。
type Row struct {
	Nama    string
	Sebagai string
}

// ValidationError は入力データの不備を表します。
// メッセージはそのままユーザーに返されます。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func normalizeHeader(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Parse は先頭ワークシートから {nama, sebagai} の列を抽出します。
// ヘッダー行は1行目固定で、大文字小文字と前後空白は無視します。
// nama と sebagai が両方空の行はスキップします。行順は保持されます。
func Parse(data []byte, requireSebagai bool) ([]Row, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Message: "File Excel tidak valid."}
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ValidationError{Message: "Worksheet tidak ditemukan di file Excel."}
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, &ValidationError{Message: "File Excel tidak dapat dibaca."}
	}
	if len(rows) == 0 {
		return nil, &ValidationError{Message: "Kolom Excel harus memiliki header 'nama'."}
	}

	nameIndex := -1
	roleIndex := -1
	for i, header := range rows[0] {
		switch normalizeHeader(header) {
		case "nama":
			if nameIndex == -1 {
				nameIndex = i
			}
		case "sebagai":
			if roleIndex == -1 {
				roleIndex = i
			}
		}
	}

	if nameIndex == -1 {
		return nil, &ValidationError{Message: "Kolom Excel harus memiliki header 'nama'."}
	}
	if requireSebagai && roleIndex == -1 {
		return nil, &ValidationError{Message: "Kolom Excel harus memiliki header 'sebagai'."}
	}

	result := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		nama := strings.TrimSpace(cellAt(cells, nameIndex))
		sebagai := ""
		if roleIndex != -1 {
			sebagai = strings.TrimSpace(cellAt(cells, roleIndex))
		}
		if nama == "" && sebagai == "" {
			continue
		}
		result = append(result, Row{Nama: nama, Sebagai: sebagai})
	}

	return result, nil
}

func cellAt(cells []string, index int) string {
	if index < 0 || index >= len(cells) {
		return ""
	}
	return cells[index]
}
