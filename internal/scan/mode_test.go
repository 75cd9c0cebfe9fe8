package scan

import "testing"

func TestInterceptsBack(t *testing.T) {
	intercepting := []Mode{ModeEscalation, ModePaperlessPick, ModeAccessControl}
	for _, m := range intercepting {
		if !m.InterceptsBack() {
			t.Errorf("%s must intercept back", m)
		}
	}

	passthrough := []Mode{ModeStockMove, ModeSecurityCheck, ModeDockToStock, ModeItemInformation, Mode("GENERIC"), Mode("")}
	for _, m := range passthrough {
		if m.InterceptsBack() {
			t.Errorf("%s must not intercept back", m)
		}
	}
}

func TestNested(t *testing.T) {
	nested := []Mode{
		ModeReplenList, ModeItemInformation, ModePalletBuilder, ModeCartonBuilder,
		ModePaperlessPick, ModeReturnToSupplier, ModeEscalation, ModeGoogleInbound,
		ModeAccessControl, ModeStocktakeList, ModeDispatch, ModePalletDispatch,
	}
	for _, m := range nested {
		if !m.Nested() {
			t.Errorf("%s must be nested", m)
		}
	}

	if ModeStockMove.Nested() || ModeDockToStock.Nested() || Mode("GENERIC").Nested() {
		t.Error("non-nested mode reported as nested")
	}
}

func TestSetsLocalPage(t *testing.T) {
	if ModeReplenList.SetsLocalPage() {
		t.Error("replenishment list keeps its fixed tag")
	}
	for _, m := range []Mode{ModeItemInformation, ModePaperlessPick, ModeGoogleInbound, ModeDispatch} {
		if !m.SetsLocalPage() {
			t.Errorf("%s must set the local page", m)
		}
	}
}

func TestDispatchKind(t *testing.T) {
	if ModeDockToStock.DispatchKind() != DispatchDockToStock {
		t.Error("dock_to_stock must use the dock endpoint")
	}
	if ModeSecurityCheck.DispatchKind() != DispatchSecurityCheck {
		t.Error("security_check must use the tracking endpoint")
	}
	for _, m := range []Mode{ModeStockMove, ModeItemInformation, Mode("GENERIC"), Mode("")} {
		if m.DispatchKind() != DispatchGeneric {
			t.Errorf("%s must use the generic endpoint", m)
		}
	}
}

func TestNavigatesOnErrorExtra(t *testing.T) {
	for _, m := range []Mode{Mode("GENERIC"), Mode(""), ModeReplenList, ModeSecurityCheck} {
		if !m.NavigatesOnErrorExtra() {
			t.Errorf("%s must navigate on error extraInfo", m)
		}
	}
	for _, m := range []Mode{ModeStockMove, ModePalletBuilder, ModePaperlessPick, ModeEscalation, ModeGoogleInbound, ModeAccessControl} {
		if m.NavigatesOnErrorExtra() {
			t.Errorf("%s must not navigate on error extraInfo", m)
		}
	}
}

func TestStoresErrorExtraInPlace(t *testing.T) {
	if !ModeGoogleInbound.StoresErrorExtraInPlace() || !ModePaperlessPick.StoresErrorExtraInPlace() {
		t.Error("Google goods-in and paperless pick render error extraInfo in place")
	}
	if ModeEscalation.StoresErrorExtraInPlace() || ModeStockMove.StoresErrorExtraInPlace() {
		t.Error("only Google goods-in and paperless pick store error extraInfo")
	}
}
