/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package marketplace

import (
	"context"
	"errors"
	"fmt"

	apperrors "pet-gacha-go/internal/errors"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine escrows pets listed for sale and settles them against any
// supported payment token, taking a fee for the fee recipient.
type Engine struct {
	store        store.Store
	emitter      events.Emitter
	address      models.Address
	admin        models.Address
	pets         models.Address
	feeRecipient models.Address
	feeRate      decimal.Decimal
	feeDecimals  int32
}

func New(st store.Store, emitter events.Emitter, cfg models.MarketplaceConfig) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Address.IsZero() || cfg.Collection.IsZero() {
		return nil, fmt.Errorf("marketplace address and pet collection must be set")
	}
	if cfg.Admin.IsZero() {
		return nil, fmt.Errorf("marketplace admin cannot be the zero address")
	}
	if cfg.FeeRecipient.IsZero() {
		return nil, fmt.Errorf("fee recipient cannot be the zero address")
	}
	if err := ValidateFee(cfg.FeeRate, cfg.FeeDecimals); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	zap.L().Info("Marketplace engine initialized",
		zap.String("address", cfg.Address.String()),
		zap.String("collection", cfg.Collection.String()),
		zap.String("fee_recipient", cfg.FeeRecipient.String()),
		zap.String("fee_rate", cfg.FeeRate.String()),
		zap.Int32("fee_decimals", cfg.FeeDecimals))

	return &Engine{
		store:        st,
		emitter:      emitter,
		address:      cfg.Address,
		admin:        cfg.Admin,
		pets:         cfg.Collection,
		feeRecipient: cfg.FeeRecipient,
		feeRate:      cfg.FeeRate,
		feeDecimals:  cfg.FeeDecimals,
	}, nil
}

// Address is the escrow account on the registry and the spender on the ledger
func (e *Engine) Address() models.Address {
	return e.address
}

// Fee returns the fee and seller proceeds for a sale at price
func (e *Engine) Fee(price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return ComputeFee(price, e.feeRate, e.feeDecimals)
}

// AddPaymentToken registers token as an accepted currency. Admin only.
func (e *Engine) AddPaymentToken(ctx context.Context, caller, token models.Address) error {
	const op = "marketplace.AddPaymentToken"

	if caller != e.admin {
		return apperrors.New(op, apperrors.CodeNotAdmin, "%s is not the marketplace admin", caller)
	}
	if token.IsZero() {
		return apperrors.New(op, apperrors.CodeZeroAddress, "payment token is the zero address")
	}

	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		added, err := tx.Market().AddPaymentToken(ctx, token)
		if err != nil {
			return err
		}
		if !added {
			return apperrors.New(op, apperrors.CodeAlreadySupported, "payment token %s is already supported", token)
		}
		return nil
	})
	if err != nil {
		return apperrors.FromStore(op, err)
	}

	zap.L().Info("Payment token added", zap.String("token", token.String()))
	return nil
}

// IsPaymentTokenSupported reports payment token membership
func (e *Engine) IsPaymentTokenSupported(ctx context.Context, token models.Address) (bool, error) {
	const op = "marketplace.IsPaymentTokenSupported"

	var supported bool
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		supported, err = tx.Market().IsPaymentTokenSupported(ctx, token)
		return err
	})
	if err != nil {
		return false, apperrors.FromStore(op, err)
	}
	return supported, nil
}

// AddOrder moves petId from seller into escrow and lists it at price
func (e *Engine) AddOrder(ctx context.Context, seller models.Address, petId int64, paymentToken models.Address, price decimal.Decimal) (int64, error) {
	const op = "marketplace.AddOrder"

	var orderId int64
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		supported, err := tx.Market().IsPaymentTokenSupported(ctx, paymentToken)
		if err != nil {
			return err
		}
		if !supported {
			return apperrors.New(op, apperrors.CodeUnsupportedToken, "payment token %s is not supported", paymentToken)
		}

		registry := tx.Registry(e.pets)
		owner, err := registry.OwnerOf(ctx, petId)
		if errors.Is(err, store.ErrInvalidTokenId) || (err == nil && owner != seller) {
			return apperrors.New(op, apperrors.CodeNotOwner, "caller does not own pet %d", petId)
		}
		if err != nil {
			return err
		}

		approved, err := registry.IsApprovedForAll(ctx, seller, e.address)
		if err != nil {
			return err
		}
		if !approved {
			return apperrors.New(op, apperrors.CodeNotAuthorized, "marketplace is not an approved operator for %s", seller)
		}

		if !price.IsPositive() {
			return apperrors.New(op, apperrors.CodeZeroPrice, "price must be greater than 0")
		}
		if !price.IsInteger() {
			return apperrors.New(op, apperrors.CodeInvalidAmount, "price %s is not a whole amount", price.String())
		}

		if err := registry.TransferFrom(ctx, e.address, seller, e.address, petId); err != nil {
			return err
		}

		orderId, err = tx.Market().InsertOrder(ctx, models.Order{
			Seller:       seller,
			Collection:   e.pets,
			PetId:        petId,
			PaymentToken: paymentToken,
			Price:        price,
		})
		return err
	})
	if err != nil {
		zap.L().Warn("Add order failed",
			zap.String("seller", seller.String()),
			zap.Int64("pet_id", petId),
			zap.Error(err))
		return 0, apperrors.FromStore(op, err)
	}

	zap.L().Info("Order added",
		zap.Int64("order_id", orderId),
		zap.String("seller", seller.String()),
		zap.Int64("pet_id", petId),
		zap.String("payment_token", paymentToken.String()),
		zap.String("price", price.String()))

	e.emitter.Emit(events.OrderAdded{
		OrderId:      orderId,
		Seller:       seller,
		PetId:        petId,
		PaymentToken: paymentToken,
		Price:        price,
	})
	return orderId, nil
}

// SettleOrder charges buyer the order price through the allowance granted
// to the marketplace, pays the fee and the seller, and releases the pet.
func (e *Engine) SettleOrder(ctx context.Context, buyer models.Address, orderId int64) (models.Settlement, error) {
	const op = "marketplace.SettleOrder"

	if buyer.IsZero() {
		return models.Settlement{}, apperrors.New(op, apperrors.CodeZeroAddress, "buyer is the zero address")
	}

	var settlement models.Settlement
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		order, err := tx.Market().GetOpenOrder(ctx, orderId)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.New(op, apperrors.CodeOrderNotFound, "order %d is not open", orderId)
		}
		if order.Seller == buyer {
			return apperrors.New(op, apperrors.CodeSelfPurchase, "seller cannot buy order %d", orderId)
		}

		fee, proceeds := e.Fee(order.Price)
		if fee.IsPositive() {
			reference := fmt.Sprintf("market:order:%d:fee", orderId)
			if err := tx.Ledger().TransferFrom(ctx, order.PaymentToken, e.address, buyer, e.feeRecipient, fee, reference); err != nil {
				return err
			}
		}
		if proceeds.IsPositive() {
			reference := fmt.Sprintf("market:order:%d:proceeds", orderId)
			if err := tx.Ledger().TransferFrom(ctx, order.PaymentToken, e.address, buyer, order.Seller, proceeds, reference); err != nil {
				return err
			}
		}

		if err := tx.Registry(e.pets).TransferFrom(ctx, e.address, e.address, buyer, order.PetId); err != nil {
			return err
		}
		if err := tx.Market().CloseOrder(ctx, orderId, models.OrderStatusSettled, buyer); err != nil {
			return err
		}

		settlement = models.Settlement{
			OrderId:  orderId,
			Buyer:    buyer,
			Seller:   order.Seller,
			PetId:    order.PetId,
			Price:    order.Price,
			Fee:      fee,
			Proceeds: proceeds,
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("Settle order failed",
			zap.String("buyer", buyer.String()),
			zap.Int64("order_id", orderId),
			zap.Error(err))
		return models.Settlement{}, apperrors.FromStore(op, err)
	}

	zap.L().Info("Order settled",
		zap.Int64("order_id", orderId),
		zap.String("buyer", buyer.String()),
		zap.String("seller", settlement.Seller.String()),
		zap.String("price", settlement.Price.String()),
		zap.String("fee", settlement.Fee.String()))

	e.emitter.Emit(events.OrderSettled{
		OrderId:  orderId,
		Seller:   settlement.Seller,
		Buyer:    buyer,
		PetId:    settlement.PetId,
		Price:    settlement.Price,
		Fee:      settlement.Fee,
		Proceeds: settlement.Proceeds,
	})
	return settlement, nil
}

// CancelOrder returns the escrowed pet to its seller
func (e *Engine) CancelOrder(ctx context.Context, caller models.Address, orderId int64) error {
	const op = "marketplace.CancelOrder"

	var order *models.Order
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.Market().GetOpenOrder(ctx, orderId)
		if err != nil {
			return err
		}
		if order == nil {
			return apperrors.New(op, apperrors.CodeOrderNotFound, "order %d is not open", orderId)
		}
		if order.Seller != caller {
			return apperrors.New(op, apperrors.CodeNotSeller, "%s is not the seller of order %d", caller, orderId)
		}

		if err := tx.Registry(e.pets).TransferFrom(ctx, e.address, e.address, order.Seller, order.PetId); err != nil {
			return err
		}
		return tx.Market().CloseOrder(ctx, orderId, models.OrderStatusCancelled, "")
	})
	if err != nil {
		zap.L().Warn("Cancel order failed",
			zap.String("caller", caller.String()),
			zap.Int64("order_id", orderId),
			zap.Error(err))
		return apperrors.FromStore(op, err)
	}

	zap.L().Info("Order cancelled", zap.Int64("order_id", orderId), zap.Int64("pet_id", order.PetId))
	e.emitter.Emit(events.OrderCancelled{OrderId: orderId, Seller: order.Seller, PetId: order.PetId})
	return nil
}

// Order returns an open order
func (e *Engine) Order(ctx context.Context, orderId int64) (models.Order, error) {
	const op = "marketplace.Order"

	var order *models.Order
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.Market().GetOpenOrder(ctx, orderId)
		return err
	})
	if err != nil {
		return models.Order{}, apperrors.FromStore(op, err)
	}
	if order == nil {
		return models.Order{}, apperrors.New(op, apperrors.CodeOrderNotFound, "order %d is not open", orderId)
	}
	return *order, nil
}

// OpenOrders returns a page of open orders, oldest first
func (e *Engine) OpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	const op = "marketplace.OpenOrders"

	var orders []models.Order
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.Market().ListOpenOrders(ctx, limit, offset)
		return err
	})
	if err != nil {
		return nil, apperrors.FromStore(op, err)
	}
	return orders, nil
}
