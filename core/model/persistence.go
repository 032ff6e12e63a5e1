package model

import (
	"encoding/gob"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/YuminosukeSato/taipeihouse/pkg/errors"
)

// CompressedExt is the file suffix that turns on xz compression.
const CompressedExt = ".xz"

// SaveModel はモデルをファイルに保存する
//
// ファイル名が ".xz" で終わる場合は xz で圧縮する。書き込みはアトミックではない。
//
// 使用例:
//
//	err := model.SaveModel(pipe, "taipei_house_price_model.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create model file %s", filename)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close model file %s", filename)
		}
	}()

	if !IsCompressed(filename) {
		return SaveModelToWriter(model, file)
	}

	xw, err := xz.NewWriter(file)
	if err != nil {
		return errors.Wrap(err, "failed to create xz writer")
	}
	if err := SaveModelToWriter(model, xw); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return errors.Wrap(err, "failed to flush xz stream")
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む
//
// model には読み込み先のポインタを渡す。".xz" のファイルは展開して読む。
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open model file %s", filename)
	}
	defer file.Close()

	var r io.Reader = file
	if IsCompressed(filename) {
		xr, err := xz.NewReader(file)
		if err != nil {
			return errors.Wrap(err, "failed to create xz reader")
		}
		r = xr
	}
	return LoadModelFromReader(model, r)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}

// IsCompressed reports whether filename selects xz compression.
func IsCompressed(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), CompressedExt)
}
