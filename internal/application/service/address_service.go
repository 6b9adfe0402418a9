package service

import (
	"errors"
	"fmt"
	"strings"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/service"

	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the edge length of donation QR codes in pixels
const qrSize = 128

// ErrUnknownAsset is returned for a symbol outside the asset table
var ErrUnknownAsset = errors.New("unknown asset")

// AddressService exposes the donation addresses for copy and QR rendering
type AddressService struct {
	assets []entity.Asset
}

// NewAddressService collects the asset rows of the configured sources
func NewAddressService(sources []service.AssetSource) *AddressService {
	assets := make([]entity.Asset, 0, len(sources))
	for _, src := range sources {
		assets = append(assets, src.Asset())
	}
	return &AddressService{assets: assets}
}

// Addresses returns the donation asset rows in display order
func (s *AddressService) Addresses() []entity.Asset {
	return s.assets
}

// Lookup finds an asset by symbol in any case
func (s *AddressService) Lookup(symbol string) (entity.Asset, error) {
	for _, a := range s.assets {
		if strings.EqualFold(string(a.Symbol), symbol) {
			return a, nil
		}
	}
	return entity.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
}

// QRCode renders the donation payload of symbol as a PNG
func (s *AddressService) QRCode(symbol string) ([]byte, error) {
	asset, err := s.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(asset.QRPayload(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code for %s: %w", asset.Symbol, err)
	}
	return png, nil
}
