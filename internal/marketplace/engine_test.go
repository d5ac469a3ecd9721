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
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pet-gacha-go/internal/database"
	apperrors "pet-gacha-go/internal/errors"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	gold         models.Address = "gold"
	sampleToken  models.Address = "sample"
	pets         models.Address = "pets"
	market       models.Address = "market"
	admin        models.Address = "admin"
	seller       models.Address = "seller"
	buyer        models.Address = "buyer"
	feeRecipient models.Address = "fees"
)

var defaultPrice = decimal.NewFromInt(100)

type MarketplaceTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *database.Service
	engine  *Engine
	emitted *events.Recorder
}

func TestMarketplaceTestSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceTestSuite))
}

func (s *MarketplaceTestSuite) SetupTest() {
	s.ctx = context.Background()

	db, err := database.NewService(s.ctx, models.DatabaseConfig{
		Path:         filepath.Join(s.T().TempDir(), "market.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  time.Second,
		BusyTimeout:  30 * time.Second,
	})
	s.Require().NoError(err)
	s.db = db

	s.emitted = &events.Recorder{}
	s.engine, err = New(db, s.emitted, models.MarketplaceConfig{
		Address:      market,
		Admin:        admin,
		Collection:   pets,
		FeeRecipient: feeRecipient,
		FeeRate:      decimal.NewFromInt(10),
		FeeDecimals:  0,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.engine.AddPaymentToken(s.ctx, admin, gold))
	s.run(func(tx store.Tx) error {
		if err := tx.Ledger().Mint(s.ctx, gold, seller, decimal.NewFromInt(10000), "genesis"); err != nil {
			return err
		}
		if err := tx.Ledger().Mint(s.ctx, gold, buyer, decimal.NewFromInt(10000), "genesis"); err != nil {
			return err
		}
		_, err := tx.Registry(pets).Mint(s.ctx, seller)
		return err
	})
}

func (s *MarketplaceTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *MarketplaceTestSuite) run(fn func(tx store.Tx) error) {
	s.Require().NoError(s.db.RunInTx(s.ctx, fn))
}

func (s *MarketplaceTestSuite) approveMarket(owner models.Address) {
	s.run(func(tx store.Tx) error {
		return tx.Registry(pets).SetApprovalForAll(s.ctx, owner, market, true)
	})
}

func (s *MarketplaceTestSuite) approveSpend(owner models.Address, amount decimal.Decimal) {
	s.run(func(tx store.Tx) error {
		return tx.Ledger().Approve(s.ctx, gold, owner, market, amount)
	})
}

func (s *MarketplaceTestSuite) owner(id int64) models.Address {
	owner, err := s.db.GetPetOwner(s.ctx, pets, id)
	s.Require().NoError(err)
	return owner
}

func (s *MarketplaceTestSuite) balance(holder models.Address) decimal.Decimal {
	balance, err := s.db.GetHolderBalance(s.ctx, holder, gold)
	s.Require().NoError(err)
	return balance
}

func (s *MarketplaceTestSuite) listDefault() int64 {
	s.approveMarket(seller)
	orderId, err := s.engine.AddOrder(s.ctx, seller, 1, gold, defaultPrice)
	s.Require().NoError(err)
	return orderId
}

func (s *MarketplaceTestSuite) TestNew_RejectsBadConfig() {
	cfg := models.MarketplaceConfig{Address: market, Admin: admin, Collection: pets, FeeRecipient: feeRecipient, FeeRate: decimal.NewFromInt(10)}

	bad := cfg
	bad.FeeRecipient = models.ZeroAddress
	_, err := New(s.db, nil, bad)
	s.Error(err)

	bad = cfg
	bad.Admin = ""
	_, err = New(s.db, nil, bad)
	s.Error(err)

	bad = cfg
	bad.FeeRate = decimal.NewFromInt(101)
	_, err = New(s.db, nil, bad)
	s.Error(err)
}

func (s *MarketplaceTestSuite) TestAddPaymentToken_ZeroAddress() {
	err := s.engine.AddPaymentToken(s.ctx, admin, models.ZeroAddress)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeZeroAddress))
}

func (s *MarketplaceTestSuite) TestAddPaymentToken_AlreadySupported() {
	s.Require().NoError(s.engine.AddPaymentToken(s.ctx, admin, sampleToken))
	err := s.engine.AddPaymentToken(s.ctx, admin, sampleToken)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeAlreadySupported))
}

func (s *MarketplaceTestSuite) TestAddPaymentToken_Success() {
	supported, err := s.engine.IsPaymentTokenSupported(s.ctx, sampleToken)
	s.Require().NoError(err)
	s.False(supported)

	s.Require().NoError(s.engine.AddPaymentToken(s.ctx, admin, sampleToken))

	supported, err = s.engine.IsPaymentTokenSupported(s.ctx, sampleToken)
	s.Require().NoError(err)
	s.True(supported)
}

func (s *MarketplaceTestSuite) TestAddPaymentToken_NotAdmin() {
	err := s.engine.AddPaymentToken(s.ctx, seller, sampleToken)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeNotAdmin))
}

func (s *MarketplaceTestSuite) TestAddOrder_UnsupportedToken() {
	s.approveMarket(seller)
	_, err := s.engine.AddOrder(s.ctx, seller, 1, sampleToken, defaultPrice)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeUnsupportedToken))
}

func (s *MarketplaceTestSuite) TestAddOrder_NotOwner() {
	s.approveMarket(seller)
	_, err := s.engine.AddOrder(s.ctx, buyer, 1, gold, defaultPrice)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeNotOwner))

	_, err = s.engine.AddOrder(s.ctx, seller, 42, gold, defaultPrice)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeNotOwner))
}

func (s *MarketplaceTestSuite) TestAddOrder_NotApproved() {
	_, err := s.engine.AddOrder(s.ctx, seller, 1, gold, defaultPrice)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeNotAuthorized))
	s.Equal(seller, s.owner(1))
}

func (s *MarketplaceTestSuite) TestAddOrder_ZeroPrice() {
	s.approveMarket(seller)
	_, err := s.engine.AddOrder(s.ctx, seller, 1, gold, decimal.Zero)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeZeroPrice))

	_, err = s.engine.AddOrder(s.ctx, seller, 1, gold, decimal.RequireFromString("0.5"))
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeInvalidAmount))
	s.Empty(s.emitted.Events())
}

func (s *MarketplaceTestSuite) TestAddOrder_Success() {
	s.Equal(seller, s.owner(1))

	orderId := s.listDefault()
	s.Equal(int64(1), orderId)
	s.Equal(market, s.owner(1))

	added := s.emitted.OfType(events.TypeOrderAdded)
	s.Require().Len(added, 1)
	s.Equal(events.OrderAdded{OrderId: 1, Seller: seller, PetId: 1, PaymentToken: gold, Price: defaultPrice}, added[0])

	order, err := s.engine.Order(s.ctx, orderId)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusOpen, order.Status)
	s.True(order.Price.Equal(defaultPrice))

	orders, err := s.engine.OpenOrders(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Len(orders, 1)
}

func (s *MarketplaceTestSuite) TestSettleOrder_Success() {
	orderId := s.listDefault()
	s.approveSpend(buyer, defaultPrice)

	settlement, err := s.engine.SettleOrder(s.ctx, buyer, orderId)
	s.Require().NoError(err)
	s.True(settlement.Fee.Equal(decimal.NewFromInt(10)))
	s.True(settlement.Proceeds.Equal(decimal.NewFromInt(90)))

	s.True(s.balance(buyer).Equal(decimal.NewFromInt(9900)))
	s.True(s.balance(seller).Equal(decimal.NewFromInt(10090)))
	s.True(s.balance(feeRecipient).Equal(decimal.NewFromInt(10)))
	s.Equal(buyer, s.owner(1))

	s.Len(s.emitted.OfType(events.TypeOrderSettled), 1)

	_, err = s.engine.SettleOrder(s.ctx, buyer, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeOrderNotFound))

	closed, err := s.db.GetOrder(s.ctx, orderId)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusSettled, closed.Status)
	s.Equal(buyer, closed.Buyer)
}

func (s *MarketplaceTestSuite) TestSettleOrder_FeeFloorsOnUnevenPrice() {
	s.approveMarket(seller)
	orderId, err := s.engine.AddOrder(s.ctx, seller, 1, gold, decimal.NewFromInt(99))
	s.Require().NoError(err)
	s.approveSpend(buyer, decimal.NewFromInt(99))

	settlement, err := s.engine.SettleOrder(s.ctx, buyer, orderId)
	s.Require().NoError(err)
	s.True(settlement.Fee.Equal(decimal.NewFromInt(9)))
	s.True(s.balance(seller).Equal(decimal.NewFromInt(10090)))
	s.True(s.balance(feeRecipient).Equal(decimal.NewFromInt(9)))
}

func (s *MarketplaceTestSuite) TestSettleOrder_InsufficientAllowanceIsAtomic() {
	orderId := s.listDefault()
	// enough for the fee leg but not the proceeds leg
	s.approveSpend(buyer, decimal.NewFromInt(50))

	_, err := s.engine.SettleOrder(s.ctx, buyer, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeInsufficientAllowance))

	s.True(s.balance(buyer).Equal(decimal.NewFromInt(10000)))
	s.True(s.balance(seller).Equal(decimal.NewFromInt(10000)))
	s.True(s.balance(feeRecipient).IsZero())
	s.Equal(market, s.owner(1))

	order, err := s.engine.Order(s.ctx, orderId)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusOpen, order.Status)
	s.Empty(s.emitted.OfType(events.TypeOrderSettled))
}

func (s *MarketplaceTestSuite) TestSettleOrder_InsufficientBalance() {
	orderId := s.listDefault()
	s.run(func(tx store.Tx) error {
		return tx.Ledger().Approve(s.ctx, gold, "pauper", market, defaultPrice)
	})

	_, err := s.engine.SettleOrder(s.ctx, "pauper", orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeInsufficientBalance))
	s.Equal(market, s.owner(1))
}

func (s *MarketplaceTestSuite) TestSettleOrder_SelfPurchaseAndUnknown() {
	orderId := s.listDefault()

	_, err := s.engine.SettleOrder(s.ctx, seller, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeSelfPurchase))

	_, err = s.engine.SettleOrder(s.ctx, buyer, 999)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeOrderNotFound))
}

func (s *MarketplaceTestSuite) TestCancelOrder() {
	orderId := s.listDefault()

	err := s.engine.CancelOrder(s.ctx, buyer, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeNotSeller))
	s.Equal(market, s.owner(1))

	s.Require().NoError(s.engine.CancelOrder(s.ctx, seller, orderId))
	s.Equal(seller, s.owner(1))
	s.Len(s.emitted.OfType(events.TypeOrderCancelled), 1)

	err = s.engine.CancelOrder(s.ctx, seller, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeOrderNotFound))

	s.approveSpend(buyer, defaultPrice)
	_, err = s.engine.SettleOrder(s.ctx, buyer, orderId)
	s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeOrderNotFound))
}

func (s *MarketplaceTestSuite) TestSettleOrder_ConcurrentBuyersSettleOnce() {
	orderId := s.listDefault()

	const buyers = 10
	contenders := make([]models.Address, buyers)
	for i := range contenders {
		contenders[i] = models.Address(fmt.Sprintf("buyer-%d", i))
		s.run(func(tx store.Tx) error {
			if err := tx.Ledger().Mint(s.ctx, gold, contenders[i], defaultPrice, "genesis"); err != nil {
				return err
			}
			return tx.Ledger().Approve(s.ctx, gold, contenders[i], market, defaultPrice)
		})
	}

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	errs := make(chan error, buyers)
	for _, contender := range contenders {
		wg.Add(1)
		go func(contender models.Address) {
			defer wg.Done()
			if _, err := s.engine.SettleOrder(s.ctx, contender, orderId); err != nil {
				errs <- err
				return
			}
			successes.Add(1)
		}(contender)
	}
	wg.Wait()
	close(errs)

	s.Equal(int32(1), successes.Load())
	for err := range errs {
		s.ErrorIs(err, apperrors.Sentinel(apperrors.CodeOrderNotFound))
	}

	s.True(s.balance(seller).Equal(decimal.NewFromInt(10090)), "seller credited once")
	s.True(s.balance(feeRecipient).Equal(decimal.NewFromInt(10)), "fee collected once")

	winner := s.owner(1)
	s.NotEqual(market, winner)
	paid := 0
	for _, contender := range contenders {
		if s.balance(contender).IsZero() {
			paid++
			s.Equal(contender, winner)
		}
	}
	s.Equal(1, paid)
	s.Len(s.emitted.OfType(events.TypeOrderSettled), 1)
}

func TestNew_NilStore(t *testing.T) {
	_, err := New(nil, nil, models.MarketplaceConfig{})
	require.Error(t, err)
}
