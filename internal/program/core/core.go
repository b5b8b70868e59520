// internal/program/core/core.go
package core

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/hybrid-swap/internal/utils/binary"
)

// ProgramID - программа коллекций и ассетов (совместима с MPL-Core).
var ProgramID = solana.MustPublicKeyFromBase58("CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d")

// Key - первый байт любого аккаунта программы.
type Key uint8

const (
	KeyUninitialized Key = 0
	KeyAssetV1       Key = 1
	KeyCollectionV1  Key = 5
)

// UpdateAuthorityKind - вариант UpdateAuthority у ассета.
type UpdateAuthorityKind uint8

const (
	UpdateAuthorityNone       UpdateAuthorityKind = 0
	UpdateAuthorityAddress    UpdateAuthorityKind = 1
	UpdateAuthorityCollection UpdateAuthorityKind = 2
)

const (
	addCollectionPluginV1 uint8 = 3

	pluginUpdateDelegate uint8 = 4
	authorityAddress     uint8 = 3
)

var (
	ErrNotAsset      = errors.New("account is not an asset")
	ErrNotCollection = errors.New("account is not a collection")
)

// Asset - базовая часть AssetV1 (без плагинов).
type Asset struct {
	Owner           solana.PublicKey
	UpdateAuthority UpdateAuthorityKind
	// Адрес для Address/Collection, пустой для None.
	UpdateAuthorityAddress solana.PublicKey
	Name                   string
	URI                    string
}

// Collection returns the collection the asset belongs to, if any.
func (a *Asset) Collection() (solana.PublicKey, bool) {
	if a.UpdateAuthority != UpdateAuthorityCollection {
		return solana.PublicKey{}, false
	}
	return a.UpdateAuthorityAddress, true
}

// Collection - базовая часть CollectionV1.
type Collection struct {
	UpdateAuthority solana.PublicKey
	Name            string
	URI             string
	NumMinted       uint32
	CurrentSize     uint32
}

// DecodeAsset декодирует AssetV1.
func DecodeAsset(data []byte) (*Asset, error) {
	r := binary.NewReader(data, 0)
	if Key(r.ReadUint8()) != KeyAssetV1 || r.Err() != nil {
		return nil, ErrNotAsset
	}

	asset := &Asset{Owner: r.ReadPubKey()}
	asset.UpdateAuthority = UpdateAuthorityKind(r.ReadUint8())
	switch asset.UpdateAuthority {
	case UpdateAuthorityNone:
	case UpdateAuthorityAddress, UpdateAuthorityCollection:
		asset.UpdateAuthorityAddress = r.ReadPubKey()
	default:
		return nil, fmt.Errorf("%w: unknown update authority %d", ErrNotAsset, asset.UpdateAuthority)
	}
	asset.Name = r.ReadString()
	asset.URI = r.ReadString()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAsset, err)
	}
	return asset, nil
}

// DecodeCollection декодирует CollectionV1.
func DecodeCollection(data []byte) (*Collection, error) {
	r := binary.NewReader(data, 0)
	if Key(r.ReadUint8()) != KeyCollectionV1 || r.Err() != nil {
		return nil, ErrNotCollection
	}

	c := &Collection{
		UpdateAuthority: r.ReadPubKey(),
		Name:            r.ReadString(),
		URI:             r.ReadString(),
		NumMinted:       r.ReadUint32(),
		CurrentSize:     r.ReadUint32(),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCollection, err)
	}
	return c, nil
}

// AddUpdateDelegateAccounts - аккаунты add_collection_plugin_v1.
type AddUpdateDelegateAccounts struct {
	Collection solana.PublicKey
	Payer      solana.PublicKey
	// Текущий update authority коллекции, должен подписать.
	Authority solana.PublicKey
}

// NewAddUpdateDelegateInstruction добавляет коллекции плагин UpdateDelegate с дополнительными
// делегатами. Плагином управляет pluginAuthority.
func NewAddUpdateDelegateInstruction(
	programID solana.PublicKey,
	accounts AddUpdateDelegateAccounts,
	delegates []solana.PublicKey,
	pluginAuthority solana.PublicKey,
) (solana.Instruction, error) {
	if len(delegates) == 0 {
		return nil, errors.New("at least one delegate is required")
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	// instruction + Plugin::UpdateDelegate { additional_delegates }
	if err := enc.WriteUint8(addCollectionPluginV1); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(pluginUpdateDelegate); err != nil {
		return nil, err
	}
	if err := enc.Encode(delegates); err != nil {
		return nil, fmt.Errorf("failed to encode delegates: %w", err)
	}

	// init_authority: Some(Authority::Address { address })
	if err := enc.WriteUint8(1); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(authorityAddress); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(pluginAuthority[:], false); err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Collection, true, false),
		solana.NewAccountMeta(accounts.Payer, true, true),
		solana.NewAccountMeta(accounts.Authority, false, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		// log_wrapper не используется: на его месте передаётся id программы
		solana.NewAccountMeta(programID, false, false),
	}
	return solana.NewInstruction(programID, metas, buf.Bytes()), nil
}
