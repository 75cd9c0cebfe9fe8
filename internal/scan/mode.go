// Package scan implements the scan interpreter: it consumes scanned barcodes
// against the current mode context and decides between back navigation,
// specialized dispatch and generic scan handling.
package scan

// Mode identifies which logical screen/workflow a scan is interpreted
// against. The set is closed; unknown tags behave as the generic mode.
type Mode string

const (
	ModeDockToStock      Mode = "dock_to_stock"
	ModeStockMove        Mode = "STOCKMOVE"
	ModeSecurityCheck    Mode = "security_check"
	ModeReplenList       Mode = "CMD.REPLEN.LIST"
	ModeItemInformation  Mode = "CMD.ITEMINFORMATION"
	ModePalletBuilder    Mode = "CMD.PBUILDER"
	ModeCartonBuilder    Mode = "CMD.CBUILDER"
	ModePaperlessPick    Mode = "CMD.PPICK"
	ModeReturnToSupplier Mode = "CMD.RET.RTS"
	ModeEscalation       Mode = "CMD.ESCALATION"
	ModeGoogleInbound    Mode = "CMD.GOOGLE.INBOUND"
	ModeAccessControl    Mode = "CMD.ACCESSCONTROL"
	ModeStocktakeList    Mode = "CMD.STOCKTAKE.LIST"
	ModeDispatch         Mode = "CMD.DISPATCH"
	ModePalletDispatch   Mode = "CMD.PDISPATCH"
)

// DispatchKind selects the backend endpoint for a scan.
type DispatchKind int

const (
	DispatchGeneric DispatchKind = iota
	DispatchDockToStock
	DispatchSecurityCheck
)

// DispatchKind returns the endpoint routing for this mode.
func (m Mode) DispatchKind() DispatchKind {
	switch m {
	case ModeDockToStock:
		return DispatchDockToStock
	case ModeSecurityCheck:
		return DispatchSecurityCheck
	default:
		return DispatchGeneric
	}
}

// InterceptsBack reports whether this mode consumes the back sentinel itself
// instead of the interpreter popping history.
func (m Mode) InterceptsBack() bool {
	switch m {
	case ModeEscalation, ModePaperlessPick, ModeAccessControl:
		return true
	}
	return false
}

// Nested reports whether successful scan payloads render as the active
// nested screen instead of pushing a generic scan-result screen.
func (m Mode) Nested() bool {
	switch m {
	case ModeReplenList, ModeItemInformation, ModePalletBuilder,
		ModeCartonBuilder, ModePaperlessPick, ModeReturnToSupplier,
		ModeEscalation, ModeGoogleInbound, ModeAccessControl,
		ModeStocktakeList, ModeDispatch, ModePalletDispatch:
		return true
	}
	return false
}

// SetsLocalPage reports whether this mode also adopts the response's own
// declared page as the local mode tag. All nested modes do, except the
// replenishment list, which keeps its fixed tag.
func (m Mode) SetsLocalPage() bool {
	return m.Nested() && m != ModeReplenList
}

// NavigatesOnErrorExtra reports whether an error response that still carries
// extraInfo HTML is shown as a navigable scan-result screen. Modes with an
// in-place nested screen render it there instead (or not at all).
func (m Mode) NavigatesOnErrorExtra() bool {
	if m == ModeStockMove {
		return false
	}
	return !m.SetsLocalPage()
}

// StoresErrorExtraInPlace reports whether an error response's extraInfo is
// committed as the nested screen payload. Only the Google goods-in and
// paperless pick flows keep rendering server content through errors.
func (m Mode) StoresErrorExtraInPlace() bool {
	return m == ModeGoogleInbound || m == ModePaperlessPick
}
